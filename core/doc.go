// Package core provides the value model used throughout JsonDB.
//
// The package defines the canonical in-memory representation of JSON data:
// objects are insertion-ordered Mappings, arrays are []any, numbers are
// json.Number, and the remaining scalars map to their Go equivalents. It
// also defines Shape, Condition, TableInfo and Identity.
//
// # Shapes
//
// A table holds a value of one of three shapes:
//   - ShapeSequence: an ordered list of records
//   - ShapeMapping: an insertion-ordered object of string keyed records
//   - ShapeScalar: any other single JSON value
//
// Shapes are not fixed: inserting into a scalar table promotes it to a
// two-element sequence holding the old and new values.
//
// # Conditions
//
// Conditional update and delete take an arbitrary predicate:
//
//	cond := core.ValueEquals(2)
//	store.DeleteData("numbers", cond, false)
//
// FieldEquals builds a predicate over one field of mapping-shaped records:
//
//	cond := core.FieldEquals("city", "Oslo")
//
// # Codec
//
// DecodeValue, EncodeValue and EncodeIndent translate between JSON text and
// the canonical model, preserving object key order at every nesting depth
// and emitting non-ASCII characters literally.
package core
