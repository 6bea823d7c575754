package value

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ---------------------------------------------------------------------------
// Engineering notation
// ---------------------------------------------------------------------------

// plainExponentLimit is the smallest adjusted exponent still rendered
// without an exponent suffix.
const plainExponentLimit = -6

// Engineering renders d in engineering notation. Values with exponent 0,
// or with a negative exponent and an adjusted exponent of at least -6, are
// written plainly ("7", "0.25", "0.000001"). Everything else gets a
// mantissa of one to three integer digits and an exponent that is a
// multiple of three ("12.5E+3", "1E+3", "500E-9").
func Engineering(d *apd.Decimal) string {
	if d == nil {
		return "0"
	}
	if d.Form != apd.Finite {
		return d.String()
	}

	digits := d.Coeff.String()
	zero := d.Coeff.Sign() == 0
	exp := int(d.Exponent)

	var b strings.Builder
	if d.Negative && !zero {
		b.WriteByte('-')
	}

	if exp == 0 {
		b.WriteString(digits)
		return b.String()
	}

	adjusted := exp + len(digits) - 1
	if exp < 0 && adjusted >= plainExponentLimit {
		point := len(digits) + exp
		if point > 0 {
			b.WriteString(digits[:point])
			b.WriteByte('.')
			b.WriteString(digits[point:])
		} else {
			b.WriteString("0.")
			b.WriteString(strings.Repeat("0", -point))
			b.WriteString(digits)
		}
		return b.String()
	}

	sig := adjusted % 3
	if sig < 0 {
		sig += 3
	}
	adjusted -= sig
	sig++

	switch {
	case zero:
		switch sig {
		case 1:
			b.WriteByte('0')
		case 2:
			b.WriteString("0.00")
			adjusted += 3
		case 3:
			b.WriteString("0.0")
			adjusted += 3
		}
	case sig >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", sig-len(digits)))
	default:
		b.WriteString(digits[:sig])
		b.WriteByte('.')
		b.WriteString(digits[sig:])
	}

	if adjusted != 0 {
		b.WriteByte('E')
		if adjusted > 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(adjusted))
	}
	return b.String()
}

// Truncate returns the integer part of d as an int64.
func Truncate(d *apd.Decimal) (int64, error) {
	var integ, frac apd.Decimal
	d.Modf(&integ, &frac)
	return integ.Int64()
}

// IsIntegral reports whether d has no fractional part.
func IsIntegral(d *apd.Decimal) bool {
	if d.Form != apd.Finite {
		return false
	}
	var integ, frac apd.Decimal
	d.Modf(&integ, &frac)
	return frac.IsZero()
}
