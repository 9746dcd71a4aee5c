package domain

import "strconv"

// Kind enumerates the payload value types carried in document metadata.
type Kind int

const (
	// KindString is a text value.
	KindString Kind = iota
	// KindNumber is a float64 value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

// Value is a small tagged union for metadata fields. It replaces loosely
// typed payload maps: readers check the kind instead of type-asserting.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value type tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload (zero for non-string values).
func (v Value) Str() string { return v.str }

// Num returns the numeric payload (zero for non-number values).
func (v Value) Num() float64 { return v.num }

// IsTrue returns the boolean payload (false for non-bool values).
func (v Value) IsTrue() bool { return v.b }

// Text renders the value for logging and flat serialization.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}
