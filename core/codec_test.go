package core

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeValuePreservesKeyOrder(t *testing.T) {
	input := `{"zebra":1,"apple":{"nested_z":true,"nested_a":false},"mango":[1,{"x":1,"b":2}]}`

	v, err := DecodeValue([]byte(input))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	out, err := EncodeValue(v)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if string(out) != input {
		t.Errorf("Round trip changed key order:\n in: %s\nout: %s", input, out)
	}
}

func TestDecodeValueScalars(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{`"hello"`, "hello"},
		{`true`, true},
		{`null`, nil},
		{`42`, json.Number("42")},
		{`3.14`, json.Number("3.14")},
	}

	for _, tt := range tests {
		v, err := DecodeValue([]byte(tt.input))
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", tt.input, err)
		}
		if v != tt.want {
			t.Errorf("Decoded %s to %v (%T), want %v (%T)", tt.input, v, v, tt.want, tt.want)
		}
	}
}

func TestDecodeValueRejectsMalformed(t *testing.T) {
	for _, input := range []string{`{`, `{"a":}`, `[1,2`, `{"a":1}trailing`, ``} {
		if _, err := DecodeValue([]byte(input)); err == nil {
			t.Errorf("Expected error for input %q", input)
		}
	}
}

func TestDecodeDatabaseRequiresObject(t *testing.T) {
	if _, err := DecodeDatabase([]byte(`[1,2,3]`)); err == nil {
		t.Error("Expected error for non-object top level")
	}

	db, err := DecodeDatabase([]byte(`{"users":[]}`))
	if err != nil {
		t.Fatalf("Failed to decode database: %v", err)
	}
	if db.Len() != 1 {
		t.Errorf("Expected 1 table, got %d", db.Len())
	}
}

func TestEncodeIndentFormat(t *testing.T) {
	db := NewMapping()
	users := NewMapping()
	users.Set("alice", json.Number("30"))
	db.Set("users", users)
	db.Set("tags", []any{"a", "b"})
	db.Set("empty", []any{})

	out, err := EncodeIndent(db)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	want := `{
  "users": {
    "alice": 30
  },
  "tags": [
    "a",
    "b"
  ],
  "empty": []
}`
	if string(out) != want {
		t.Errorf("Unexpected indented output:\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestEncodeNonASCIILiteral(t *testing.T) {
	out, err := EncodeValue("日本語 café")
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if string(out) != `"日本語 café"` {
		t.Errorf("Expected non-ASCII characters to be emitted literally, got %s", out)
	}
}

func TestEncodeNoHTMLEscaping(t *testing.T) {
	out, err := EncodeValue("<b>&</b>")
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if string(out) != `"<b>&</b>"` {
		t.Errorf("Expected HTML characters to be emitted literally, got %s", out)
	}
}

func TestNormalize(t *testing.T) {
	v, err := Normalize(map[string]any{"n": 5})
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}

	m, ok := v.(*Mapping)
	if !ok {
		t.Fatalf("Expected *Mapping, got %T", v)
	}
	n, ok := m.Get("n")
	if !ok {
		t.Fatal("Expected key n to be present")
	}
	if n != json.Number("5") {
		t.Errorf("Expected json.Number(\"5\"), got %v (%T)", n, n)
	}

	// Scalars pass through untouched.
	if s, _ := Normalize("text"); s != "text" {
		t.Errorf("Expected string to pass through, got %v", s)
	}
	if b, _ := Normalize(true); b != true {
		t.Errorf("Expected bool to pass through, got %v", b)
	}

	// Numbers become json.Number.
	if n, _ := Normalize(7); n != json.Number("7") {
		t.Errorf("Expected json.Number(\"7\"), got %v (%T)", n, n)
	}

	if _, err := Normalize(make(chan int)); err == nil {
		t.Error("Expected error for non-JSON-representable value")
	}
}
