// Package form models the dynamic, caller-defined record shape and turns it
// into the descriptive text that is chunked and embedded.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is one node of a form: a string, number, boolean, list or ordered map.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string // string content or the verbatim number literal
	b    bool
	list []Value
	m    *Map
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number keeps the literal as written so that re-encoding is lossless.
func Number(n json.Number) Value { return Value{kind: KindNumber, str: n.String()} }

func Int(n int64) Value { return Value{kind: KindNumber, str: strconv.FormatInt(n, 10)} }

func List(items ...Value) Value { return Value{kind: KindList, list: items} }

func Object(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() string { return v.str }

func (v Value) Bool() bool { return v.b }

func (v Value) List() []Value { return v.list }

func (v Value) Map() *Map { return v.m }

// Float reports the numeric value; non-numbers and unparsable literals yield false.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Text renders scalars the way they are compared by equality filters.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return encodeString(buf, v.str)
	case KindNumber:
		buf.WriteString(v.str)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		return v.m.encode(buf)
	default:
		return fmt.Errorf("unknown value kind: %d", v.kind)
	}
	return nil
}

// encodeString writes s as a JSON string without escaping HTML characters, so
// markup embedded in a form is persisted verbatim.
func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(m), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected json token %v", tok)
}

// Parse decodes a JSON object into an ordered Map.
func Parse(data []byte) (*Map, error) {
	return Decode(bytes.NewReader(data))
}

func Decode(r io.Reader) (*Map, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	if v.Kind() != KindMap {
		return nil, fmt.Errorf("decode form: expected object, got %s", v.Kind())
	}
	return v.Map(), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(data string) *Map {
	m, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return m
}
