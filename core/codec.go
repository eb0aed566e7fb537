package core

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// DecodeValue parses JSON into the canonical record model: objects become
// *Mapping (preserving key order), arrays become []any, numbers become
// json.Number, and the remaining scalars decode to string, bool or nil.
func DecodeValue(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeNext(dec)
	if err != nil {
		return nil, err
	}

	// Reject trailing content after the first value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}

	return v, nil
}

// DecodeDatabase parses the backing file contents, requiring a JSON object
// at the top level.
func DecodeDatabase(data []byte) (*Mapping, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}

	m, ok := v.(*Mapping)
	if !ok {
		return nil, fmt.Errorf("backing file does not contain a JSON object")
	}
	return m, nil
}

func decodeNext(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, json.Number, bool or nil
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewMapping()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string: %v", keyTok)
			}
			val, err := decodeNext(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return obj, nil

	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeNext(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim.String())
	}
}

// Normalize converts an arbitrary Go value into the canonical record model
// by round-tripping it through JSON. Values already in scalar canonical form
// are returned as-is.
func Normalize(v Record) (Record, error) {
	switch v.(type) {
	case nil, string, bool, json.Number:
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-representable: %w", err)
	}
	return DecodeValue(data)
}

// EncodeValue serializes a record to compact JSON with insertion-ordered
// object keys and without HTML escaping.
func EncodeValue(v Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "", ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeIndent serializes a record the way the backing file is written:
// 2-space indentation, insertion-ordered object keys, non-ASCII characters
// emitted literally.
func EncodeIndent(v Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any, prefix, indent string) error {
	switch t := v.(type) {
	case *Mapping:
		if t == nil || t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		inner := prefix + indent
		first := true
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if indent != "" {
				buf.WriteByte('\n')
				buf.WriteString(inner)
			}
			if err := encodeScalar(buf, pair.Key); err != nil {
				return err
			}
			if indent != "" {
				buf.WriteString(": ")
			} else {
				buf.WriteByte(':')
			}
			if err := encodeValue(buf, pair.Value, inner, indent); err != nil {
				return err
			}
		}
		if indent != "" {
			buf.WriteByte('\n')
			buf.WriteString(prefix)
		}
		buf.WriteByte('}')
		return nil

	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		inner := prefix + indent
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if indent != "" {
				buf.WriteByte('\n')
				buf.WriteString(inner)
			}
			if err := encodeValue(buf, elem, inner, indent); err != nil {
				return err
			}
		}
		if indent != "" {
			buf.WriteByte('\n')
			buf.WriteString(prefix)
		}
		buf.WriteByte(']')
		return nil

	default:
		return encodeScalar(buf, v)
	}
}

// encodeScalar writes a single non-container value without HTML escaping.
func encodeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates the value with a newline; strip it.
	buf.Truncate(buf.Len() - 1)
	return nil
}
