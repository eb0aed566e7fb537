package main

import (
	"testing"

	"github.com/jsondb/JsonDB"
	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/ps"
)

func setupTestCLI(t *testing.T) *CLI {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	instance := JsonDB.Open(&persistence)
	store := instance.Store(core.Identity{
		Name:  "test",
		Email: "test@test.com",
	})

	return &CLI{
		store:   store,
		history: make([]string, 0),
	}
}

func encode(t *testing.T, v core.Record) string {
	t.Helper()
	data, err := core.EncodeValue(v)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	return string(data)
}

func TestCLICreateAndInsert(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create users`)
	cli.execute(`insert users {"name":"Alice"}`)

	data, exists := cli.store.GetData("users")
	if !exists {
		t.Fatal("Expected users table to exist")
	}
	if got := encode(t, data); got != `[{"name":"Alice"}]` {
		t.Errorf("Unexpected table contents: %s", got)
	}
}

func TestCLICreateWithInitialData(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create config {"debug":true}`)

	data, _ := cli.store.GetData("config")
	if got := encode(t, data); got != `{"debug":true}` {
		t.Errorf("Unexpected table contents: %s", got)
	}
}

func TestCLIUpdateWhere(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create nums`)
	cli.execute(`insert nums 1`)
	cli.execute(`insert nums 2`)
	cli.execute(`insert nums 3`)
	cli.execute(`update nums 99 where 2`)

	data, _ := cli.store.GetData("nums")
	if got := encode(t, data); got != `[1,99,3]` {
		t.Errorf("Unexpected table contents: %s", got)
	}
}

func TestCLIUpdateOverwrite(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create state`)
	cli.execute(`update state {"phase":"done"}`)

	data, _ := cli.store.GetData("state")
	if got := encode(t, data); got != `{"phase":"done"}` {
		t.Errorf("Unexpected table contents: %s", got)
	}
}

func TestCLIDeleteWhereField(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create users`)
	cli.execute(`insert users {"name":"Alice"}`)
	cli.execute(`insert users {"name":"Bob"}`)
	cli.execute(`delete users where name="Bob"`)

	data, _ := cli.store.GetData("users")
	if got := encode(t, data); got != `[{"name":"Alice"}]` {
		t.Errorf("Unexpected table contents: %s", got)
	}
}

func TestCLIDeleteAll(t *testing.T) {
	cli := setupTestCLI(t)

	cli.execute(`create logs`)
	cli.execute(`insert logs "entry"`)
	cli.execute(`delete logs all`)

	data, _ := cli.store.GetData("logs")
	if got := encode(t, data); got != `[]` {
		t.Errorf("Expected empty table, got: %s", got)
	}
}

func TestSplitWord(t *testing.T) {
	op, rest := splitWord(`insert users {"a": 1}`)
	if op != "insert" || rest != `users {"a": 1}` {
		t.Errorf("Unexpected split: %q / %q", op, rest)
	}

	op, rest = splitWord("tables")
	if op != "tables" || rest != "" {
		t.Errorf("Unexpected split: %q / %q", op, rest)
	}
}

func TestSplitWhere(t *testing.T) {
	value, where := splitWhere(`{"a":1} where {"a":2}`)
	if value != `{"a":1}` || where != `{"a":2}` {
		t.Errorf("Unexpected split: %q / %q", value, where)
	}

	value, where = splitWhere(`{"note":" where "} where 2`)
	if value != `{"note":" where "}` || where != "2" {
		t.Errorf("Unexpected split: %q / %q", value, where)
	}

	value, where = splitWhere(`{"a":1}`)
	if value != `{"a":1}` || where != "" {
		t.Errorf("Unexpected split: %q / %q", value, where)
	}
}

func TestParseMatcher(t *testing.T) {
	cond, err := parseMatcher(`name="Alice"`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	record, err := core.DecodeValue([]byte(`{"name":"Alice","age":30}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !cond(record) {
		t.Error("Expected field matcher to match")
	}

	cond, err = parseMatcher(`5`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	five, _ := core.DecodeValue([]byte(`5`))
	if !cond(five) {
		t.Error("Expected value matcher to match")
	}

	cond, err = parseMatcher("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cond != nil {
		t.Error("Expected nil condition for empty text")
	}

	if _, err := parseMatcher(`name={broken`); err == nil {
		t.Error("Expected malformed match value error")
	}
}

func TestCLIHistory(t *testing.T) {
	cli := setupTestCLI(t)

	cli.addToHistory("tables")
	cli.addToHistory("tables") // duplicate, should be skipped
	cli.addToHistory(`insert users {"a":1}`)

	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got: %d", len(cli.history))
	}
}
