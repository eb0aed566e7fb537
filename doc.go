// Package JsonDB provides a minimal file-backed JSON document store.
//
// JsonDB keeps an entire database — a JSON object mapping table names to
// table contents — in memory, and rewrites the whole backing file after
// every mutation. There is no indexing, no query language and no schema:
// it is a convenience wrapper equivalent to "load a JSON blob, mutate a
// mapping, write the blob back". Every operation is O(file size).
//
// # Quick Start
//
// Open a store against a file path:
//
//	store, err := JsonDB.OpenPath("data/app.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store.CreateTable("users", nil)
//	store.InsertData("users", map[string]any{"name": "Alice", "age": 30})
//	store.InsertData("numbers", 5) // tables are auto-created on insert
//
//	data, ok := store.GetData("users")
//
// Or wire the pieces explicitly for an in-memory or versioned store:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	store := JsonDB.Open(&persistence).Store(core.Identity{Name: "App", Email: "app@example.com"})
//
// # Tables and Shapes
//
// A table holds an arbitrary JSON value in one of three shapes: sequence,
// mapping or scalar. Inserting appends to sequences, merges mappings, and
// promotes a scalar to a two-element sequence. Conditional update and
// delete take arbitrary predicates over records.
//
// # Versioning and Backup
//
// With ps.NewVersionedPersistence every persist is recorded as a Git
// commit; Store.History and Store.RestoreTo provide point-in-time restore.
// Store.ExportTo and Store.ImportFrom copy the backing file to and from
// local paths, file://, http(s):// and s3:// URLs.
package JsonDB
