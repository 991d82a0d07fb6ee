package track

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// Kind identifies which representation a Value carries.
type Kind int

const (
	Null Kind = iota
	Int
	Float
	Text
	Bytes
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a single present-or-absent cell of a Track Record.
type Value struct {
	Kind Kind
	num  float64
	str  string
	raw  []byte
}

// NullValue returns the absent value.
func NullValue() Value { return Value{} }

// IntValue wraps an integer cell.
func IntValue(i int64) Value { return Value{Kind: Int, num: float64(i)} }

// FloatValue wraps a floating-point cell.
func FloatValue(f float64) Value { return Value{Kind: Float, num: f} }

// TextValue wraps a text cell.
func TextValue(s string) Value { return Value{Kind: Text, str: s} }

// BytesValue wraps a blob cell. The slice is copied.
func BytesValue(b []byte) Value {
	if b == nil {
		return Value{}
	}
	return Value{Kind: Bytes, raw: bytes.Clone(b)}
}

// IsNull reports whether the cell is absent.
func (v Value) IsNull() bool { return v.Kind == Null }

// Number returns the numeric payload for Int and Float cells only.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case Int, Float:
		return v.num, true
	}
	return 0, false
}

// Text returns text cells, and blob cells that hold valid UTF-8.
func (v Value) Text() (string, bool) {
	switch v.Kind {
	case Text:
		return v.str, true
	case Bytes:
		if utf8.Valid(v.raw) {
			return string(v.raw), true
		}
	}
	return "", false
}

// Bytes returns blob cells, and text cells as their UTF-8 bytes.
func (v Value) Bytes() ([]byte, bool) {
	switch v.Kind {
	case Bytes:
		return v.raw, true
	case Text:
		return []byte(v.str), true
	}
	return nil, false
}

// String is the canonical form used when a cell is treated as a category.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return strconv.FormatInt(int64(v.num), 10)
	case Float:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Text:
		return v.str
	case Bytes:
		if utf8.Valid(v.raw) {
			return string(v.raw)
		}
		return "<" + strconv.Itoa(len(v.raw)) + " bytes>"
	}
	return ""
}
