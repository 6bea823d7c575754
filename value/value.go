// Package value implements the tagged runtime values of the interpreter.
//
// A Value carries a fixed kind once declared. Numeric values are backed by
// arbitrary-precision decimals (apd) and render in engineering notation
// wherever they are turned into text.
package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ---------------------------------------------------------------------------
// Kinds
// ---------------------------------------------------------------------------

// Kind tags the contents of a Value.
type Kind uint8

const (
	KindUnresolved Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindChar
	KindArray
)

var kindNames = [...]string{
	KindUnresolved: "unresolved",
	KindBool:       "bool",
	KindInt:        "int",
	KindDecimal:    "decimal",
	KindString:     "string",
	KindChar:       "char",
	KindArray:      "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsNumeric reports whether values of this kind take part in arithmetic.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindDecimal || k == KindBool
}

// ParseKind maps a declared type keyword to a Kind. Unknown keywords map to
// KindUnresolved with ok=false.
func ParseKind(name string) (Kind, bool) {
	switch strings.TrimSpace(name) {
	case "bool", "boolean":
		return KindBool, true
	case "int":
		return KindInt, true
	case "decimal", "float", "double":
		return KindDecimal, true
	case "string", "String":
		return KindString, true
	case "char":
		return KindChar, true
	}
	return KindUnresolved, false
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrTypeMismatch is returned when a value cannot be stored in or read as
	// the requested kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrIndexOutOfRange is returned by array accesses outside [0, len).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrFinal is returned when writing to a constant.
	ErrFinal = errors.New("cannot assign to constant")
)

// ---------------------------------------------------------------------------
// Value
// ---------------------------------------------------------------------------

// Value is a mutable, kind-tagged slot. Bindings hold *Value so that
// assignment updates the slot in place; use Copy for call-by-value.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	d     *apd.Decimal
	s     string
	c     rune
	arr   *Array
	final bool
}

// Bool returns a new Bool value.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Int returns a new Int value.
func Int(i int64) *Value { return &Value{kind: KindInt, i: i} }

// String returns a new String value.
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Char returns a new Char value.
func Char(c rune) *Value { return &Value{kind: KindChar, c: c} }

// Decimal returns a new Decimal value holding a copy of d.
func Decimal(d *apd.Decimal) *Value {
	return &Value{kind: KindDecimal, d: new(apd.Decimal).Set(d)}
}

// FromArray wraps an array in a Value.
func FromArray(a *Array) *Value { return &Value{kind: KindArray, arr: a} }

// Unresolved returns a value whose kind has not been identified yet. Its
// first Set adopts the source kind.
func Unresolved() *Value { return &Value{kind: KindUnresolved} }

// Zero returns the default value for a declared kind.
func Zero(k Kind) *Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindDecimal:
		return Decimal(apd.New(0, 0))
	case KindString:
		return String("")
	case KindChar:
		return Char(0)
	}
	return Unresolved()
}

// ParseLiteral constructs a value of the declared kind from literal text.
// String and char literals may be given with or without their quotes.
func ParseLiteral(k Kind, text string) (*Value, error) {
	switch k {
	case KindBool:
		switch text {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return Int(n), nil
		}
	case KindDecimal:
		d, _, err := apd.NewFromString(text)
		if err == nil {
			return &Value{kind: KindDecimal, d: d}, nil
		}
	case KindString:
		return String(Unquote(text, '"')), nil
	case KindChar:
		r := []rune(Unquote(text, '\''))
		if len(r) == 1 {
			return Char(r[0]), nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a valid %s literal", ErrTypeMismatch, text, k)
}

// Unquote strips one pair of surrounding quote characters, if present.
func Unquote(s string, q byte) string {
	if len(s) >= 2 && s[0] == q && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

// Kind returns the value's tag.
func (v *Value) Kind() Kind { return v.kind }

// IsFinal reports whether the value rejects writes.
func (v *Value) IsFinal() bool { return v.final }

// MarkFinal makes later writes fail with ErrFinal.
func (v *Value) MarkFinal() { v.final = true }

// AsBool returns the boolean payload.
func (v *Value) AsBool() bool { return v.b }

// AsInt returns the integer payload.
func (v *Value) AsInt() int64 { return v.i }

// AsString returns the string payload.
func (v *Value) AsString() string { return v.s }

// AsChar returns the char payload.
func (v *Value) AsChar() rune { return v.c }

// AsArray returns the array payload, or nil for non-array values.
func (v *Value) AsArray() *Array { return v.arr }

// IsNumeric reports whether the value is Int, Decimal or Bool.
func (v *Value) IsNumeric() bool { return v.kind.IsNumeric() }

// IsStringLike reports whether the value is String or Char.
func (v *Value) IsStringLike() bool { return v.kind == KindString || v.kind == KindChar }

// Number returns the numeric value as a fresh decimal. Bools map to 1/0.
func (v *Value) Number() (*apd.Decimal, error) {
	switch v.kind {
	case KindInt:
		return apd.New(v.i, 0), nil
	case KindDecimal:
		return new(apd.Decimal).Set(v.d), nil
	case KindBool:
		if v.b {
			return apd.New(1, 0), nil
		}
		return apd.New(0, 0), nil
	}
	return nil, fmt.Errorf("%w: %s is not numeric", ErrTypeMismatch, v.kind)
}

// Truth reports whether the value counts as true in a guard.
func (v *Value) Truth() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i != 0, nil
	case KindDecimal:
		return !v.d.IsZero(), nil
	}
	return false, fmt.Errorf("%w: %s cannot be used as a condition", ErrTypeMismatch, v.kind)
}

// Text returns the canonical textual form: engineering notation for
// decimals, the raw payload for strings and chars.
func (v *Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return Engineering(v.d)
	case KindString:
		return v.s
	case KindChar:
		if v.c == 0 {
			return ""
		}
		return string(v.c)
	case KindArray:
		return v.arr.String()
	}
	return "<unresolved>"
}

// Literal returns the value as it would be written in source: strings and
// chars quoted, everything else as Text.
func (v *Value) Literal() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindChar:
		return "'" + string(v.c) + "'"
	}
	return v.Text()
}

func (v *Value) String() string { return v.Literal() }

// Copy returns a deep copy that does not alias v. The copy is never final.
func (v *Value) Copy() *Value {
	c := &Value{kind: v.kind, b: v.b, i: v.i, s: v.s, c: v.c}
	if v.d != nil {
		c.d = new(apd.Decimal).Set(v.d)
	}
	if v.arr != nil {
		c.arr = v.arr.Copy()
	}
	return c
}
