package value

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
)

// Set stores src into v, converting it to v's declared kind. Unresolved
// targets adopt the kind of src. The target keeps its identity, so every
// binding that refers to v observes the new contents.
func (v *Value) Set(src *Value) error {
	if v.final {
		return ErrFinal
	}
	if src == nil || src.kind == KindUnresolved {
		return fmt.Errorf("%w: cannot store an unresolved value", ErrTypeMismatch)
	}
	if v.kind == KindUnresolved {
		*v = *src.Copy()
		return nil
	}

	switch v.kind {
	case KindBool:
		switch {
		case src.kind == KindBool:
			v.b = src.b
			return nil
		case src.kind == KindInt || src.kind == KindDecimal:
			t, _ := src.Truth()
			v.b = t
			return nil
		}

	case KindInt:
		switch src.kind {
		case KindInt:
			v.i = src.i
			return nil
		case KindBool:
			v.i = 0
			if src.b {
				v.i = 1
			}
			return nil
		case KindDecimal:
			n, err := Truncate(src.d)
			if err != nil {
				return fmt.Errorf("%w: %s does not fit in int: %v", ErrTypeMismatch, Engineering(src.d), err)
			}
			v.i = n
			return nil
		case KindChar:
			v.i = int64(src.c)
			return nil
		}

	case KindDecimal:
		if src.IsNumeric() {
			d, _ := src.Number()
			v.d = d
			return nil
		}

	case KindString:
		switch src.kind {
		case KindString, KindChar, KindInt, KindDecimal, KindBool:
			v.s = src.Text()
			return nil
		}

	case KindChar:
		switch src.kind {
		case KindChar:
			v.c = src.c
			return nil
		case KindString:
			r := []rune(src.s)
			if len(r) == 1 {
				v.c = r[0]
				return nil
			}
		case KindInt, KindDecimal:
			d, _ := src.Number()
			if IsIntegral(d) {
				n, err := Truncate(d)
				if err == nil && n >= 0 && n <= math.MaxInt32 {
					v.c = rune(n)
					return nil
				}
			}
		}

	case KindArray:
		if src.kind == KindArray && src.arr.elem == v.arr.elem {
			v.arr = src.arr.Copy()
			return nil
		}
	}

	return fmt.Errorf("%w: cannot store %s %s in %s", ErrTypeMismatch, src.kind, src.Literal(), v.kind)
}

// SetNumber stores a decimal result into v. It is shorthand for
// v.Set(Decimal(d)).
func (v *Value) SetNumber(d *apd.Decimal) error {
	return v.Set(&Value{kind: KindDecimal, d: d})
}

// Accepts reports whether src may be bound to a parameter of kind dst.
// Binding is stricter than assignment: numbers bind to int only when
// integral, and only strings and chars bind to string or char.
func Accepts(dst Kind, src *Value) bool {
	if src == nil {
		return false
	}
	switch dst {
	case KindUnresolved:
		return src.kind != KindUnresolved
	case KindBool, KindDecimal:
		return src.IsNumeric()
	case KindInt:
		if !src.IsNumeric() {
			return false
		}
		d, err := src.Number()
		return err == nil && IsIntegral(d)
	case KindString:
		return src.IsStringLike()
	case KindChar:
		return src.kind == KindChar || (src.kind == KindString && utf8.RuneCountInString(src.s) == 1)
	case KindArray:
		return src.kind == KindArray
	}
	return false
}
