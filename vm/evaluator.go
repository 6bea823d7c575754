package vm

import (
	"context"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Evaluator
// ---------------------------------------------------------------------------

// Evaluator computes expression results against a runtime. Every result
// is a fresh value of kind Decimal or String; its Text is the canonical
// textual form. The only side effects are those of called methods.
type Evaluator struct {
	rt *Runtime
}

// Eval evaluates e in the runtime's current scope.
func (ev *Evaluator) Eval(ctx context.Context, e ast.Expr) (*value.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return ev.literal(n)

	case *ast.Ident:
		slot, err := ev.rt.Lookup(n.Name)
		if err != nil {
			return nil, err
		}
		return result(slot, n)

	case *ast.Paren:
		return ev.Eval(ctx, n.X)

	case *ast.Unary:
		return ev.unary(ctx, n)

	case *ast.Binary:
		return ev.binary(ctx, n)

	case *ast.Call:
		ret, err := ev.rt.Call(ctx, n)
		if err != nil {
			return nil, err
		}
		if ret == nil {
			return nil, newError(TypeMismatch, n, "void method %s used as a value", n.Name)
		}
		return result(ret, n)

	case *ast.Index:
		slot, err := ev.Element(ctx, n)
		if err != nil {
			return nil, err
		}
		return result(slot, n)

	case *ast.NewArray, *ast.ArrayLit:
		return nil, newError(TypeMismatch, e, "array used as a scalar")

	case nil:
		return nil, newError(TypeMismatch, nil, "missing expression")
	}
	return nil, newError(TypeMismatch, e, "unsupported expression %T", e)
}

// result converts a bound slot into an evaluation result.
func result(slot *value.Value, e ast.Expr) (*value.Value, error) {
	switch slot.Kind() {
	case value.KindBool, value.KindInt, value.KindDecimal:
		d, err := slot.Number()
		if err != nil {
			return nil, wrapError(e, err)
		}
		return value.Decimal(d), nil
	case value.KindString, value.KindChar:
		return value.String(slot.Text()), nil
	case value.KindArray:
		return nil, newError(TypeMismatch, e, "array used as a scalar")
	}
	return nil, newError(TypeMismatch, e, "variable has no value")
}

// literalKinds maps literal forms to the kind their text is parsed as.
var literalKinds = map[ast.LiteralKind]value.Kind{
	ast.IntLit:     value.KindInt,
	ast.DecimalLit: value.KindDecimal,
	ast.BoolLit:    value.KindBool,
	ast.StringLit:  value.KindString,
	ast.CharLit:    value.KindChar,
}

func (ev *Evaluator) literal(n *ast.Literal) (*value.Value, error) {
	k, ok := literalKinds[n.Kind]
	if !ok {
		return nil, newError(TypeMismatch, n, "unknown literal kind %d", n.Kind)
	}
	v, err := value.ParseLiteral(k, n.Text)
	if err != nil {
		if k.IsNumeric() && k != value.KindBool {
			return nil, newError(ArithmeticError, n, "malformed number %q", n.Text)
		}
		return nil, wrapError(n, err)
	}
	return result(v, n)
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// arraySlot resolves the base of an index form to an array binding.
func (ev *Evaluator) arraySlot(base ast.Expr) (*value.Value, error) {
	for {
		p, ok := base.(*ast.Paren)
		if !ok {
			break
		}
		base = p.X
	}
	id, ok := base.(*ast.Ident)
	if !ok {
		return nil, newError(IndexError, base, "indexed expression is not an array variable")
	}
	slot, err := ev.rt.Lookup(id.Name)
	if err != nil {
		return nil, err
	}
	if slot.Kind() != value.KindArray {
		return nil, newError(IndexError, base, "%s is a %s, not an array", id.Name, slot.Kind())
	}
	return slot, nil
}

// Element resolves an index form to the element slot it designates.
func (ev *Evaluator) Element(ctx context.Context, n *ast.Index) (*value.Value, error) {
	slot, err := ev.arraySlot(n.Base)
	if err != nil {
		return nil, err
	}
	i, err := ev.EvalInt(ctx, n.Index)
	if err != nil {
		return nil, err
	}
	el, err := slot.AsArray().At(int(i))
	if err != nil {
		return nil, newError(IndexError, n, "%v", err)
	}
	return el, nil
}

// EvalInt evaluates e and requires an integral numeric result.
func (ev *Evaluator) EvalInt(ctx context.Context, e ast.Expr) (int64, error) {
	v, err := ev.Eval(ctx, e)
	if err != nil {
		return 0, err
	}
	if v.Kind() != value.KindDecimal {
		return 0, newError(TypeMismatch, e, "expected an integer, got string %s", v.Literal())
	}
	d, _ := v.Number()
	if !value.IsIntegral(d) {
		return 0, newError(TypeMismatch, e, "expected an integer, got %s", v.Text())
	}
	i, err := value.Truncate(d)
	if err != nil {
		return 0, newError(ArithmeticError, e, "%v", err)
	}
	return i, nil
}

// EvalArray evaluates an array-producing expression: an allocation, an
// initializer list or an array variable (copied). elem constrains the
// element kind; KindUnresolved accepts any.
func (ev *Evaluator) EvalArray(ctx context.Context, e ast.Expr, elem value.Kind) (*value.Array, error) {
	switch n := e.(type) {
	case *ast.Paren:
		return ev.EvalArray(ctx, n.X, elem)

	case *ast.NewArray:
		k, ok := value.ParseKind(n.Elem)
		if !ok {
			return nil, newError(TypeMismatch, n, "unknown element type %q", n.Elem)
		}
		if elem != value.KindUnresolved && k != elem {
			return nil, newError(TypeMismatch, n, "cannot use %s[] as %s[]", k, elem)
		}
		size, err := ev.EvalInt(ctx, n.Size)
		if err != nil {
			return nil, err
		}
		arr, err := value.NewArray(k, size)
		if err != nil {
			return nil, newError(IndexError, n, "%v", err)
		}
		return arr, nil

	case *ast.ArrayLit:
		vals := make([]*value.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := ev.Eval(ctx, el)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		k := elem
		if k == value.KindUnresolved && len(vals) > 0 {
			k = vals[0].Kind()
		}
		arr, err := value.ArrayOf(k, vals...)
		if err != nil {
			return nil, wrapError(n, err)
		}
		return arr, nil

	case *ast.Ident:
		slot, err := ev.rt.Lookup(n.Name)
		if err != nil {
			return nil, err
		}
		if slot.Kind() != value.KindArray {
			return nil, newError(TypeMismatch, n, "%s is a %s, not an array", n.Name, slot.Kind())
		}
		arr := slot.AsArray()
		if elem != value.KindUnresolved && arr.Elem() != elem {
			return nil, newError(TypeMismatch, n, "cannot use %s[] as %s[]", arr.Elem(), elem)
		}
		return arr.Copy(), nil
	}
	return nil, newError(TypeMismatch, e, "expression does not produce an array")
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

// Guard evaluates a loop or branch condition.
func (ev *Evaluator) Guard(ctx context.Context, e ast.Expr) (bool, error) {
	v, err := ev.Eval(ctx, e)
	if err != nil {
		return false, err
	}
	ok, err := v.Truth()
	if err != nil {
		return false, wrapError(e, err)
	}
	return ok, nil
}
