package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Object is a JSON object that remembers its key order, so tree searches visit members in
// document order.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// Get returns the member value for key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Fields[key]
	return v, ok
}

// String returns the member as a string when it is one.
func (o *Object) String(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// ParseOrderedJSON decodes a single JSON document into a tree of *Object, []any, string,
// json.Number, bool and nil. Trailing non-space data is an error.
func ParseOrderedJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeOrderedValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("ParseOrderedJSON: trailing data after top-level value")
	}
	return v, nil
}

// maxDecodeDepth bounds nesting so adversarial input cannot exhaust the stack.
const maxDecodeDepth = 10000

func decodeOrderedValue(dec *json.Decoder, depth int) (any, error) {
	if depth > maxDecodeDepth {
		return nil, errors.New("JSON nesting too deep")
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return tok, nil
	}

	switch d {
	case '{':
		obj := &Object{Fields: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected string key, got %T", keyTok)
			}
			val, err := decodeOrderedValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.Fields[key]; !dup {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Fields[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeOrderedValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", d)
	}
}

// MarshalJSON writes the object's members in their original order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.Fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
