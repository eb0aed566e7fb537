package core

import (
	"strings"
	"testing"
)

func TestShapeOf(t *testing.T) {
	if got := ShapeOf([]any{1, 2}); got != ShapeSequence {
		t.Errorf("Expected sequence shape, got %v", got)
	}
	if got := ShapeOf(NewMapping()); got != ShapeMapping {
		t.Errorf("Expected mapping shape, got %v", got)
	}
	if got := ShapeOf(map[string]any{"a": 1}); got != ShapeMapping {
		t.Errorf("Expected mapping shape for map[string]any, got %v", got)
	}
	for _, v := range []Record{nil, "text", true, 3.5} {
		if got := ShapeOf(v); got != ShapeScalar {
			t.Errorf("Expected scalar shape for %v, got %v", v, got)
		}
	}
}

func TestShapeString(t *testing.T) {
	if ShapeSequence.String() != "sequence" {
		t.Errorf("Unexpected sequence tag: %s", ShapeSequence.String())
	}
	if ShapeMapping.String() != "mapping" {
		t.Errorf("Unexpected mapping tag: %s", ShapeMapping.String())
	}
	if ShapeScalar.String() != "scalar" {
		t.Errorf("Unexpected scalar tag: %s", ShapeScalar.String())
	}
}

func TestLength(t *testing.T) {
	if got := Length([]any{1, 2, 3}); got != 3 {
		t.Errorf("Expected length 3, got %d", got)
	}

	m := NewMapping()
	m.Set("a", 1)
	m.Set("b", 2)
	if got := Length(m); got != 2 {
		t.Errorf("Expected length 2, got %d", got)
	}

	// Strings count runes, not bytes.
	if got := Length("héllo"); got != 5 {
		t.Errorf("Expected length 5, got %d", got)
	}

	if got := Length(42); got != 0 {
		t.Errorf("Expected length 0 for scalar, got %d", got)
	}
	if got := Length(nil); got != 0 {
		t.Errorf("Expected length 0 for nil, got %d", got)
	}
}

func TestMergeOverwritesInPlace(t *testing.T) {
	dst := NewMapping()
	dst.Set("a", 1)
	dst.Set("b", 2)

	src := NewMapping()
	src.Set("b", 3)
	src.Set("c", 4)

	Merge(dst, src)

	data, err := EncodeValue(dst)
	if err != nil {
		t.Fatalf("Failed to encode merged mapping: %v", err)
	}

	// b keeps its original position with the new value, c is appended.
	want := `{"a":1,"b":3,"c":4}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestTableInfoMarshalAbsent(t *testing.T) {
	info := TableInfo{Exists: false}

	data, err := info.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal table info: %v", err)
	}
	if string(data) != `{"exists":false}` {
		t.Errorf("Expected only the exists flag, got %s", data)
	}
}

func TestTableInfoMarshalPresent(t *testing.T) {
	info := TableInfo{
		Exists: true,
		Name:   "users",
		Shape:  ShapeSequence,
		Length: 0,
		Data:   []any{},
	}

	data, err := info.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal table info: %v", err)
	}

	got := string(data)
	for _, fragment := range []string{`"exists":true`, `"name":"users"`, `"type":"sequence"`, `"length":0`, `"data":[]`} {
		if !strings.Contains(got, fragment) {
			t.Errorf("Expected %s in %s", fragment, got)
		}
	}
}

func TestValueEqualsCondition(t *testing.T) {
	cond := ValueEquals(2)

	two, err := Normalize(2)
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}
	if !cond(two) {
		t.Error("Expected condition to match normalized 2")
	}
	if !cond(2) {
		t.Error("Expected condition to match plain int 2")
	}
	if cond(3) {
		t.Error("Expected condition to reject 3")
	}
	if cond("2") {
		t.Error("Expected condition to reject string \"2\"")
	}
}

func TestFieldEqualsCondition(t *testing.T) {
	cond := FieldEquals("city", "Oslo")

	rec, err := DecodeValue([]byte(`{"name":"Kari","city":"Oslo"}`))
	if err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if !cond(rec) {
		t.Error("Expected condition to match record")
	}

	other, err := DecodeValue([]byte(`{"name":"Ola","city":"Bergen"}`))
	if err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if cond(other) {
		t.Error("Expected condition to reject record")
	}

	// Non-mapping records never match.
	if cond("Oslo") {
		t.Error("Expected condition to reject scalar record")
	}
}
