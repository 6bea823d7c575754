package value

import (
	"fmt"
	"strings"
)

// Array is an ordered, index-addressable sequence of values sharing one
// element kind.
type Array struct {
	elem  Kind
	items []*Value
}

// MaxArrayLen bounds the size of an allocated array.
const MaxArrayLen = 1 << 24

// NewArray returns an array of n zero values of the element kind. Sizes
// outside [0, MaxArrayLen] fail with ErrIndexOutOfRange.
func NewArray(elem Kind, n int64) (*Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative array size %d", ErrIndexOutOfRange, n)
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array size %d exceeds %d", ErrIndexOutOfRange, n, MaxArrayLen)
	}
	a := &Array{elem: elem, items: make([]*Value, n)}
	for i := range a.items {
		a.items[i] = Zero(elem)
	}
	return a, nil
}

// ArrayOf builds an array from existing values, coercing each one to the
// element kind.
func ArrayOf(elem Kind, vals ...*Value) (*Array, error) {
	a := &Array{elem: elem, items: make([]*Value, len(vals))}
	for i, v := range vals {
		slot := Zero(elem)
		if err := slot.Set(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		a.items[i] = slot
	}
	return a, nil
}

// Elem returns the element kind.
func (a *Array) Elem() Kind { return a.elem }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// At returns the element slot at i.
func (a *Array) At(i int) (*Value, error) {
	if i < 0 || i >= len(a.items) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, len(a.items))
	}
	return a.items[i], nil
}

// Copy returns a deep copy.
func (a *Array) Copy() *Array {
	c := &Array{elem: a.elem, items: make([]*Value, len(a.items))}
	for i, v := range a.items {
		c.items[i] = v.Copy()
	}
	return c
}

func (a *Array) String() string {
	parts := make([]string, len(a.items))
	for i, v := range a.items {
		parts[i] = v.Literal()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
