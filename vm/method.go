package vm

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// Param is a formal parameter of a method.
type Param struct {
	Name  string
	Kind  value.Kind // element kind for arrays
	Array bool
}

// slot returns a fresh binding for the parameter.
func (p Param) slot() *value.Value {
	return zeroSlot(p.Kind, p.Array)
}

func (p Param) String() string {
	if p.Array {
		return fmt.Sprintf("%s[] %s", p.Kind, p.Name)
	}
	return fmt.Sprintf("%s %s", p.Kind, p.Name)
}

// zeroSlot returns the default binding for a declared type.
func zeroSlot(k value.Kind, array bool) *value.Value {
	if array {
		arr, _ := value.NewArray(k, 0)
		return value.FromArray(arr)
	}
	return value.Zero(k)
}

// Method is a callable unit of a class. Parameters are rebound on every
// invocation; the method itself keeps no per-call state.
type Method struct {
	Name    string
	Void    bool
	Returns value.Kind // meaningless when Void
	Params  []Param
	Body    Sequence
	Class   *ClassScope
}

// QualifiedName returns "Class.method".
func (m *Method) QualifiedName() string {
	if m.Class == nil {
		return m.Name
	}
	return m.Class.Name() + "." + m.Name
}

// Signature renders the declaration, e.g. "int add(int a, int[] b)".
func (m *Method) Signature() string {
	ret := "void"
	if !m.Void {
		ret = m.Returns.String()
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", ret, m.Name, strings.Join(params, ", "))
}

// Invoke runs the method with already-evaluated arguments. Arguments are
// copied into a fresh frame; the frame is popped on every exit path. The
// result is the frame's return slot, nil for void methods.
func (m *Method) Invoke(ctx context.Context, rt *Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != len(m.Params) {
		return nil, &RuntimeError{
			Kind: TypeMismatch,
			Expr: m.QualifiedName(),
			Err:  fmt.Errorf("expected %d arguments, got %d", len(m.Params), len(args)),
		}
	}

	frame := &Frame{Method: m, Scope: NewLocalScope(m.Class)}
	for i, p := range m.Params {
		slot := p.slot()
		if !value.Accepts(slot.Kind(), args[i]) {
			return nil, &RuntimeError{
				Kind: TypeMismatch,
				Expr: m.QualifiedName(),
				Err:  fmt.Errorf("argument %d (%s): cannot bind %s", i+1, p, describe(args[i])),
			}
		}
		if err := slot.Set(args[i]); err != nil {
			return nil, &RuntimeError{
				Kind: TypeMismatch,
				Expr: m.QualifiedName(),
				Err:  fmt.Errorf("argument %d (%s): %w", i+1, p, err),
			}
		}
		if err := frame.Scope.Declare(p.Name, slot); err != nil {
			return nil, err
		}
	}
	if !m.Void {
		frame.Return = value.Zero(m.Returns)
	}

	if err := rt.stack.Push(frame); err != nil {
		return nil, err
	}
	defer rt.stack.Pop()

	if err := rt.checkpoint(ctx); err != nil {
		return nil, err
	}
	err := rt.withScope(frame.Scope, func() error {
		return rt.RunSequence(ctx, m.Body)
	})
	if err != nil && !isReturn(err) {
		return nil, err
	}
	if err := rt.checkpoint(ctx); err != nil {
		return nil, err
	}
	return frame.Return, nil
}

// Call resolves a call form in the active class scope, evaluates its
// arguments in the caller's scope and invokes the method.
func (rt *Runtime) Call(ctx context.Context, call *ast.Call) (*value.Value, error) {
	m, err := rt.scope.Class().ResolveMethod(call.Name)
	if err != nil {
		return nil, wrapCallError(call, err)
	}
	if len(call.Args) != len(m.Params) {
		return nil, newError(TypeMismatch, call, "%s expects %d arguments, got %d",
			m.QualifiedName(), len(m.Params), len(call.Args))
	}

	args := make([]*value.Value, len(call.Args))
	for i, a := range call.Args {
		p := m.Params[i]
		if p.Array {
			arr, err := rt.eval.EvalArray(ctx, a, p.Kind)
			if err != nil {
				return nil, err
			}
			args[i] = value.FromArray(arr)
			continue
		}
		v, err := rt.eval.Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	log.Debugf("call %s depth=%d", m.QualifiedName(), rt.stack.Depth())
	return m.Invoke(ctx, rt, args)
}

// wrapCallError attaches the rendered call to a resolution failure.
func wrapCallError(call *ast.Call, err error) error {
	if re, ok := err.(*RuntimeError); ok {
		re.Expr = ast.Render(call)
	}
	return err
}

// describe names an argument's kind and text for binding errors.
func describe(v *value.Value) string {
	if v == nil {
		return "nothing"
	}
	if v.Kind() == value.KindArray {
		return "an array"
	}
	return v.Kind().String() + " " + v.Literal()
}
