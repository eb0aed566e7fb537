//go:build comparative

package db

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/ps"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Comparative benchmarks against DuckDB. Not a fair fight — the store
// rewrites the whole file per mutation while DuckDB maintains proper
// storage — but useful for quantifying the O(file size) persist cost.
// Run with: go test -tags comparative -bench . ./db

func setupStore(b *testing.B) *Store {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		b.Fatalf("Failed to initialize persistence: %v", err)
	}
	store := NewStore(&persistence, core.Identity{Name: "benchmark", Email: "bench@test.com"}, nil)

	store.CreateTable("users", nil)
	for i := 1; i <= 1000; i++ {
		store.InsertData("users", map[string]any{
			"id":   i,
			"name": "User" + strconv.Itoa(i),
			"age":  20 + i%50,
			"city": "City" + strconv.Itoa(i%10),
		})
	}
	return store
}

func setupDuckDB(b *testing.B) *sql.DB {
	duck, err := sql.Open("duckdb", "")
	if err != nil {
		b.Fatalf("Failed to open DuckDB: %v", err)
	}

	_, err = duck.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR, age INTEGER, city VARCHAR)")
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	for i := 1; i <= 1000; i++ {
		_, err = duck.Exec("INSERT INTO users VALUES (?, ?, ?, ?)",
			i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10))
		if err != nil {
			b.Fatalf("Failed to insert: %v", err)
		}
	}
	return duck
}

func BenchmarkStoreInsert(b *testing.B) {
	store := setupStore(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.InsertData("users", map[string]any{"id": 1000 + i, "name": "Extra"})
	}
}

func BenchmarkDuckDBInsert(b *testing.B) {
	duck := setupDuckDB(b)
	defer duck.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := duck.Exec("INSERT INTO users VALUES (?, ?, ?, ?)", 1001+i, "Extra", 30, "City1"); err != nil {
			b.Fatalf("Insert failed: %v", err)
		}
	}
}

func BenchmarkStoreScanFilter(b *testing.B) {
	store := setupStore(b)
	cond := core.FieldEquals("city", "City3")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := store.GetData("users")
		count := 0
		for _, item := range data.([]any) {
			if cond(item) {
				count++
			}
		}
		if count == 0 {
			b.Fatal("Expected matches")
		}
	}
}

func BenchmarkDuckDBScanFilter(b *testing.B) {
	duck := setupDuckDB(b)
	defer duck.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var count int
		if err := duck.QueryRow("SELECT COUNT(*) FROM users WHERE city = 'City3'").Scan(&count); err != nil {
			b.Fatalf("Query failed: %v", err)
		}
		if count == 0 {
			b.Fatal("Expected matches")
		}
	}
}
