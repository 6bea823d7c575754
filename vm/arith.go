package vm

import (
	"context"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

type opClass uint8

const (
	opUnknown opClass = iota
	opArith
	opRelational
	opLogical
)

func classify(op string) opClass {
	switch op {
	case "+", "-", "*", "/", "%":
		return opArith
	case "<", "<=", ">", ">=", "==", "!=":
		return opRelational
	case "&&", "||":
		return opLogical
	}
	return opUnknown
}

func boolResult(b bool) *value.Value {
	if b {
		return value.Decimal(apd.New(1, 0))
	}
	return value.Decimal(apd.New(0, 0))
}

// binary evaluates both operands, calls first, and applies the operator.
// Both operands are always evaluated.
func (ev *Evaluator) binary(ctx context.Context, n *ast.Binary) (*value.Value, error) {
	var l, r *value.Value
	var err error
	if ast.IsCall(n.Right) && !ast.IsCall(n.Left) {
		if r, err = ev.Eval(ctx, n.Right); err != nil {
			return nil, err
		}
		if l, err = ev.Eval(ctx, n.Left); err != nil {
			return nil, err
		}
	} else {
		if l, err = ev.Eval(ctx, n.Left); err != nil {
			return nil, err
		}
		if r, err = ev.Eval(ctx, n.Right); err != nil {
			return nil, err
		}
	}
	return ev.apply(n, l, r)
}

// apply combines two evaluated operands.
func (ev *Evaluator) apply(n *ast.Binary, l, r *value.Value) (*value.Value, error) {
	lstr := l.Kind() == value.KindString
	rstr := r.Kind() == value.KindString

	switch classify(n.Op) {
	case opArith:
		if lstr || rstr {
			return value.String(l.Text() + r.Text()), nil
		}
		return ev.arith(n, l, r)

	case opRelational:
		if lstr && rstr {
			return boolResult(compare(n.Op, strings.Compare(l.AsString(), r.AsString()))), nil
		}
		if lstr || rstr {
			return nil, newError(TypeMismatch, n, "cannot compare %s with %s", l.Literal(), r.Literal())
		}
		x, _ := l.Number()
		y, _ := r.Number()
		return boolResult(compare(n.Op, x.Cmp(y))), nil

	case opLogical:
		if lstr || rstr {
			return nil, newError(TypeMismatch, n, "operator %s needs numeric operands", n.Op)
		}
		a, _ := l.Truth()
		b, _ := r.Truth()
		if n.Op == "&&" {
			return boolResult(a && b), nil
		}
		return boolResult(a || b), nil
	}
	return nil, newError(ArithmeticError, n, "unknown operator %q", n.Op)
}

func compare(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "==":
		return c == 0
	}
	return c != 0
}

// arith performs decimal arithmetic in the run's context.
func (ev *Evaluator) arith(n *ast.Binary, l, r *value.Value) (*value.Value, error) {
	x, _ := l.Number()
	y, _ := r.Number()
	c := ev.rt.arith
	d := new(apd.Decimal)

	var err error
	switch n.Op {
	case "+":
		_, err = c.Add(d, x, y)
	case "-":
		_, err = c.Sub(d, x, y)
	case "*":
		_, err = c.Mul(d, x, y)
	case "/", "%":
		if y.IsZero() {
			return nil, newError(ArithmeticError, n, "division by zero")
		}
		if n.Op == "%" {
			_, err = c.Rem(d, x, y)
			break
		}
		var cond apd.Condition
		cond, err = c.Quo(d, x, y)
		if err == nil && !cond.Inexact() {
			err = trimQuotient(c, d, x.Exponent-y.Exponent)
		}
	}
	if err != nil {
		return nil, newError(ArithmeticError, n, "%v", err)
	}
	return value.Decimal(d), nil
}

// trimQuotient drops the trailing zeros an exact division leaves behind,
// stopping at the preferred exponent of the operands.
func trimQuotient(c *apd.Context, d *apd.Decimal, ideal int32) error {
	var reduced apd.Decimal
	reduced.Reduce(d)
	if reduced.Exponent > ideal {
		_, err := c.Quantize(d, &reduced, ideal)
		return err
	}
	d.Set(&reduced)
	return nil
}

func (ev *Evaluator) unary(ctx context.Context, n *ast.Unary) (*value.Value, error) {
	v, err := ev.Eval(ctx, n.X)
	if err != nil {
		return nil, err
	}
	if v.Kind() == value.KindString {
		return nil, newError(TypeMismatch, n, "operator %s needs a numeric operand", n.Op)
	}
	x, _ := v.Number()
	switch n.Op {
	case "-":
		return value.Decimal(new(apd.Decimal).Neg(x)), nil
	case "+":
		return v, nil
	case "!":
		t, _ := v.Truth()
		return boolResult(!t), nil
	}
	return nil, newError(ArithmeticError, n, "unknown operator %q", n.Op)
}
