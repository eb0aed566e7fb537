package core

// Condition is a predicate over records, used by conditional update and
// delete operations. The store invokes it per element and stays agnostic to
// its implementation.
type Condition func(Record) bool

// ValueEquals returns a Condition matching records whose canonical JSON
// encoding equals that of want. It tolerates mixed representations of the
// same value (e.g. int 2 vs json.Number("2")).
func ValueEquals(want Record) Condition {
	target := canonicalKey(want)
	return func(r Record) bool {
		return canonicalKey(r) == target
	}
}

// FieldEquals returns a Condition matching mapping-shaped records whose
// named field equals want. Non-mapping records never match.
func FieldEquals(field string, want Record) Condition {
	target := canonicalKey(want)
	return func(r Record) bool {
		switch m := r.(type) {
		case *Mapping:
			v, ok := m.Get(field)
			return ok && canonicalKey(v) == target
		case map[string]any:
			v, ok := m[field]
			return ok && canonicalKey(v) == target
		default:
			return false
		}
	}
}

func canonicalKey(v Record) string {
	n, err := Normalize(v)
	if err != nil {
		return "\x00unencodable"
	}
	data, err := EncodeValue(n)
	if err != nil {
		return "\x00unencodable"
	}
	return string(data)
}
