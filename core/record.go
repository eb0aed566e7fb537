package core

import (
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is any JSON-representable value stored within a table: an object,
// array, string, number, boolean or null. No schema is enforced.
type Record = any

// Identity identifies the author of persisted changes (used as the commit
// author when the persistence layer runs in versioned mode).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Mapping is an insertion-ordered JSON object. It is the canonical
// representation for object values at every nesting depth, so that key order
// survives the load/mutate/persist cycle.
type Mapping = orderedmap.OrderedMap[string, any]

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return orderedmap.New[string, any]()
}

// Shape classifies a table's current contents. A table is not fixed to one
// shape: inserting into a scalar table promotes it to a sequence.
type Shape int

const (
	ShapeSequence Shape = iota
	ShapeMapping
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeMapping:
		return "mapping"
	default:
		return "scalar"
	}
}

// ShapeOf returns the shape of a value. Plain map[string]any is accepted as
// a mapping for convenience, though the canonical form is *Mapping.
func ShapeOf(v Record) Shape {
	switch v.(type) {
	case []any:
		return ShapeSequence
	case *Mapping, map[string]any:
		return ShapeMapping
	default:
		return ShapeScalar
	}
}

// Length reports the element count for sequences, the key count for
// mappings, the rune count for strings, and 0 for any other value.
func Length(v Record) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case *Mapping:
		if t == nil {
			return 0
		}
		return t.Len()
	case map[string]any:
		return len(t)
	case string:
		return utf8.RuneCountInString(t)
	default:
		return 0
	}
}

// Merge copies every key of src into dst. Colliding keys are overwritten in
// place and keep their original position; new keys are appended.
func Merge(dst, src *Mapping) {
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, pair.Value)
	}
}

// TableInfo describes a single table. When Exists is false no other field
// is meaningful, and the JSON encoding contains only the exists flag.
type TableInfo struct {
	Exists bool
	Name   string
	Shape  Shape
	Length int
	Data   Record
}

func (info TableInfo) MarshalJSON() ([]byte, error) {
	m := NewMapping()
	m.Set("exists", info.Exists)
	if info.Exists {
		m.Set("name", info.Name)
		m.Set("type", info.Shape.String())
		m.Set("length", info.Length)
		m.Set("data", info.Data)
	}
	return EncodeValue(m)
}
