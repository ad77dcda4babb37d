package form

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Map is a string-keyed map that remembers insertion order. Projection walks
// keys in that order, which keeps chunk boundaries reproducible.
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set appends key on first use and replaces the value in place afterwards.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Lookup follows a path of nested keys.
func (m *Map) Lookup(path ...string) (Value, bool) {
	cur := Object(m)
	for _, key := range path {
		if cur.Kind() != KindMap {
			return Value{}, false
		}
		next, ok := cur.Map().Get(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Map) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

func (m *Map) encode(buf *bytes.Buffer) error {
	if m == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := m.values[key].encode(buf); err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// Encode returns the compact JSON encoding with HTML left unescaped.
func Encode(m *Map) ([]byte, error) {
	return m.MarshalJSON()
}

var _ json.Marshaler = (*Map)(nil)
var _ json.Unmarshaler = (*Map)(nil)
