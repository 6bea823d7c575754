package vm

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Simple commands
// ---------------------------------------------------------------------------

// DeclareCommand binds a new variable in the current scope.
type DeclareCommand struct {
	Decl  *ast.LocalDecl
	Type  value.Kind // element kind when Array is set
	Array bool
}

func (c *DeclareCommand) Kind() ControlKind { return Simple }
func (c *DeclareCommand) String() string    { return ast.RenderStmt(c.Decl) }

func (c *DeclareCommand) Execute(ctx context.Context, rt *Runtime) error {
	slot := zeroSlot(c.Type, c.Array)
	if init := c.Decl.Init; init != nil {
		if c.Array {
			arr, err := rt.eval.EvalArray(ctx, init, c.Type)
			if err != nil {
				return err
			}
			slot = value.FromArray(arr)
		} else {
			v, err := rt.eval.Eval(ctx, init)
			if err != nil {
				return err
			}
			if err := slot.Set(v); err != nil {
				return wrapError(init, err)
			}
		}
	}
	if c.Decl.Const {
		slot.MarkFinal()
	}
	return rt.scope.Declare(c.Decl.Name, slot)
}

// target resolves an assignment target to its slot.
func target(ctx context.Context, rt *Runtime, e ast.Expr) (*value.Value, error) {
	switch t := e.(type) {
	case *ast.Ident:
		return rt.Lookup(t.Name)
	case *ast.Index:
		return rt.eval.Element(ctx, t)
	case *ast.Paren:
		return target(ctx, rt, t.X)
	}
	return nil, newError(TypeMismatch, e, "cannot assign to this expression")
}

// store writes v into slot. Writes to constants are type mismatches.
func store(slot, v *value.Value, e ast.Expr) error {
	return wrapError(e, slot.Set(v))
}

// AssignCommand stores the value of an expression into a variable or an
// array element. Whole arrays are assigned by copy.
type AssignCommand struct {
	Stmt *ast.Assign
}

func (c *AssignCommand) Kind() ControlKind { return Simple }
func (c *AssignCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *AssignCommand) Execute(ctx context.Context, rt *Runtime) error {
	slot, err := target(ctx, rt, c.Stmt.Target)
	if err != nil {
		return err
	}
	if slot.Kind() == value.KindArray {
		arr, err := rt.eval.EvalArray(ctx, c.Stmt.Value, slot.AsArray().Elem())
		if err != nil {
			return err
		}
		return store(slot, value.FromArray(arr), c.Stmt.Target)
	}
	v, err := rt.eval.Eval(ctx, c.Stmt.Value)
	if err != nil {
		return err
	}
	return store(slot, v, c.Stmt.Target)
}

// IncDecCommand adds or subtracts one.
type IncDecCommand struct {
	Stmt *ast.IncDec
}

func (c *IncDecCommand) Kind() ControlKind { return Simple }
func (c *IncDecCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *IncDecCommand) Execute(ctx context.Context, rt *Runtime) error {
	slot, err := target(ctx, rt, c.Stmt.Target)
	if err != nil {
		return err
	}
	x, err := slot.Number()
	if err != nil {
		return wrapError(c.Stmt.Target, err)
	}
	op := rt.arith.Add
	if !c.Stmt.Inc {
		op = rt.arith.Sub
	}
	d := new(apd.Decimal)
	if _, err := op(d, x, apd.New(1, 0)); err != nil {
		return newError(ArithmeticError, c.Stmt.Target, "%v", err)
	}
	return store(slot, value.Decimal(d), c.Stmt.Target)
}

// CallCommand invokes a method and discards its result.
type CallCommand struct {
	Call *ast.Call
}

func (c *CallCommand) Kind() ControlKind { return Simple }
func (c *CallCommand) String() string    { return ast.Render(c.Call) }

func (c *CallCommand) Execute(ctx context.Context, rt *Runtime) error {
	_, err := rt.Call(ctx, c.Call)
	return err
}

// PrintCommand writes the text of an expression to the console. Array
// variables print as a bracketed list.
type PrintCommand struct {
	Stmt *ast.Print
}

func (c *PrintCommand) Kind() ControlKind { return Simple }
func (c *PrintCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *PrintCommand) Execute(ctx context.Context, rt *Runtime) error {
	var text string
	if id, ok := c.Stmt.X.(*ast.Ident); ok {
		if slot, err := rt.Lookup(id.Name); err == nil && slot.Kind() == value.KindArray {
			text = slot.AsArray().String()
		}
	}
	if text == "" {
		v, err := rt.eval.Eval(ctx, c.Stmt.X)
		if err != nil {
			return err
		}
		text = v.Text()
	}
	if c.Stmt.Newline {
		text += "\n"
	}
	return rt.emit(text)
}

// ReturnCommand stores the method result and unwinds to the method.
type ReturnCommand struct {
	Stmt *ast.Return
}

func (c *ReturnCommand) Kind() ControlKind { return Simple }
func (c *ReturnCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *ReturnCommand) Execute(ctx context.Context, rt *Runtime) error {
	frame := rt.stack.Top()
	if frame == nil {
		return &RuntimeError{Kind: SymbolResolution, Expr: c.String(), Err: fmt.Errorf("return outside of a method")}
	}
	if c.Stmt.X == nil && frame.Return != nil {
		return &RuntimeError{
			Kind: TypeMismatch,
			Expr: c.String(),
			Err:  fmt.Errorf("method %s must return a %s", frame.Method.QualifiedName(), frame.Method.Returns),
		}
	}
	if c.Stmt.X != nil {
		if frame.Return == nil {
			return newError(TypeMismatch, c.Stmt.X, "void method %s cannot return a value", frame.Method.QualifiedName())
		}
		v, err := rt.eval.Eval(ctx, c.Stmt.X)
		if err != nil {
			return err
		}
		if err := frame.Return.Set(v); err != nil {
			return wrapError(c.Stmt.X, err)
		}
	}
	return returnSignal{}
}
