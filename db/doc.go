// Package db provides the document store engine for JsonDB.
//
// The Store type is the main entry point. It loads the backing JSON file
// into memory once, serves table-like operations over the in-memory
// database, and rewrites the whole file after every mutation.
//
// # Store Usage
//
//	persistence, _ := ps.NewFilePersistence("data/app.json")
//	store := db.NewStore(&persistence, identity, nil)
//
//	store.CreateTable("users", nil)
//	store.InsertData("users", map[string]any{"name": "Alice"})
//	store.UpdateData("numbers", core.ValueEquals(2), 99)
//	store.DeleteData("numbers", core.ValueEquals(99), false)
//
// # Result Conventions
//
// Mutating operations return a bool success indicator and never panic.
// Conditions (missing table, duplicate table, load corruption, persist
// failure) are logged and recorded; LastError exposes the most recent one
// for callers that want strict handling. A persist failure does not flip a
// mutator's return value: the in-memory mutation succeeded, and memory and
// disk are allowed to diverge silently. This mirrors the store's
// soft-failure design throughout.
package db
