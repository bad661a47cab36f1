// Package flatten turns heterogeneous nested records into a flat delimited table.
package flatten

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind is the type of a Scalar.
type Kind int

// All scalar kinds.
const (
	NullKind Kind = iota
	StringKind
	NumberKind
	BoolKind
)

// Value is a JSON value: a Scalar, an Array or an Object.
type Value interface {
	isValue()
}

// Scalar is a leaf value. Text holds the string contents, the number literal
// as written in the source, or "true"/"false". Text is empty for null.
type Scalar struct {
	Kind Kind
	Text string
}

// Array is an ordered list of values. Arrays are leaves when flattening.
type Array []Value

// Field is one key of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a record whose fields keep their document order.
type Object struct {
	Fields []Field
}

func (Scalar) isValue() {}
func (Array) isValue() {}
func (Object) isValue() {}

// MarshalJSON implements json.Marshaler, keeping fields in document order.
func (o Object) MarshalJSON() ([]byte, error) {
	return []byte(Compact(o)), nil
}

// Null is the null scalar.
var Null = Scalar{Kind: NullKind}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{Kind: StringKind, Text: s} }

// Number returns a number scalar from its literal.
func Number(literal string) Scalar { return Scalar{Kind: NumberKind, Text: literal} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar {
	if b {
		return Scalar{Kind: BoolKind, Text: "true"}
	}
	return Scalar{Kind: BoolKind, Text: "false"}
}

// ErrNotRecords is returned when a document is neither an object nor an array of objects.
var ErrNotRecords = errors.New("document must be an object or an array of objects")

// Parse decodes a single JSON document, keeping object keys in document order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", t, dec.InputOffset())
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (Value, error) {
	obj := Object{Fields: []Field{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	arr := Array{}
	for dec.More() {
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, err
	}
	return arr, nil
}

// FromAny converts a Go value to a Value through its JSON encoding. Struct fields
// keep their declaration order and map keys are sorted.
func FromAny(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return Parse(data)
}

// Records returns the objects of a document: the elements of a top-level
// array, or a top-level object on its own.
func Records(v Value) ([]Object, error) {
	switch t := v.(type) {
	case Object:
		return []Object{t}, nil
	case Array:
		out := make([]Object, 0, len(t))
		for i, el := range t {
			obj, ok := el.(Object)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, ErrNotRecords)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, ErrNotRecords
	}
}

// RecordsFromAny converts a slice of Go values to records.
func RecordsFromAny[T any](rows []T) ([]Object, error) {
	out := make([]Object, 0, len(rows))
	for i, row := range rows {
		v, err := FromAny(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		obj, ok := v.(Object)
		if !ok {
			return nil, fmt.Errorf("row %d: %w", i, ErrNotRecords)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Compact returns the compact JSON encoding of a value.
func Compact(v Value) string {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.String()
}

func writeJSON(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case Scalar:
		switch t.Kind {
		case NullKind:
			buf.WriteString("null")
		case StringKind:
			writeString(buf, t.Text)
		default:
			buf.WriteString(t.Text)
		}
	case Array:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, el)
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, f.Key)
			buf.WriteByte(':')
			writeJSON(buf, f.Value)
		}
		buf.WriteByte('}')
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
}
