package vm

import (
	"context"
	"strings"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Controlled commands
// ---------------------------------------------------------------------------

// iterate runs body in a fresh local scope nested in the current one.
// Names declared by the body are dropped with the scope.
func iterate(ctx context.Context, rt *Runtime, body Sequence) error {
	iter := NewLocalScope(rt.scope)
	err := rt.withScope(iter, func() error {
		return rt.RunSequence(ctx, body)
	})
	if names := iter.Declared(); len(names) > 0 {
		log.Debugf("drop iteration locals: %s", strings.Join(names, ", "))
	}
	return err
}

// ForCommand is a for-style loop. The init declaration lives in a loop
// scope that spans all iterations.
type ForCommand struct {
	Stmt   *ast.For
	Init   Command // may be nil
	Update Command // may be nil
	Body   Sequence
}

func (c *ForCommand) Kind() ControlKind { return Controlled }
func (c *ForCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *ForCommand) Execute(ctx context.Context, rt *Runtime) error {
	loop := NewLocalScope(rt.scope)
	return rt.withScope(loop, func() error {
		if c.Init != nil {
			if err := c.Init.Execute(ctx, rt); err != nil {
				return err
			}
		}
		for {
			if err := rt.checkpoint(ctx); err != nil {
				return err
			}
			ok, err := rt.eval.Guard(ctx, c.Stmt.Cond)
			if err != nil || !ok {
				return err
			}
			if err := iterate(ctx, rt, c.Body); err != nil {
				return err
			}
			if err := rt.checkpoint(ctx); err != nil {
				return err
			}
			if c.Update != nil {
				if err := c.Update.Execute(ctx, rt); err != nil {
					return err
				}
			}
		}
	})
}

// WhileCommand is a pre-tested loop.
type WhileCommand struct {
	Stmt *ast.While
	Body Sequence
}

func (c *WhileCommand) Kind() ControlKind { return Controlled }
func (c *WhileCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *WhileCommand) Execute(ctx context.Context, rt *Runtime) error {
	for {
		if err := rt.checkpoint(ctx); err != nil {
			return err
		}
		ok, err := rt.eval.Guard(ctx, c.Stmt.Cond)
		if err != nil || !ok {
			return err
		}
		if err := iterate(ctx, rt, c.Body); err != nil {
			return err
		}
	}
}

// DoWhileCommand is a post-tested loop: the body runs at least once.
type DoWhileCommand struct {
	Stmt *ast.DoWhile
	Body Sequence
}

func (c *DoWhileCommand) Kind() ControlKind { return Controlled }
func (c *DoWhileCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *DoWhileCommand) Execute(ctx context.Context, rt *Runtime) error {
	for {
		if err := rt.checkpoint(ctx); err != nil {
			return err
		}
		if err := iterate(ctx, rt, c.Body); err != nil {
			return err
		}
		ok, err := rt.eval.Guard(ctx, c.Stmt.Cond)
		if err != nil || !ok {
			return err
		}
	}
}

// BlockCommand runs a nested statement list in its own scope.
type BlockCommand struct {
	Stmt *ast.Block
	Body Sequence
}

func (c *BlockCommand) Kind() ControlKind { return Controlled }
func (c *BlockCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *BlockCommand) Execute(ctx context.Context, rt *Runtime) error {
	return iterate(ctx, rt, c.Body)
}

// ---------------------------------------------------------------------------
// Conditional commands
// ---------------------------------------------------------------------------

// IfCommand runs exactly one of its branches. The negative branch may be
// empty.
type IfCommand struct {
	Stmt *ast.If
	Then Sequence
	Else Sequence
}

func (c *IfCommand) Kind() ControlKind { return Conditional }
func (c *IfCommand) String() string    { return ast.RenderStmt(c.Stmt) }

func (c *IfCommand) Execute(ctx context.Context, rt *Runtime) error {
	ok, err := rt.eval.Guard(ctx, c.Stmt.Cond)
	if err != nil {
		return err
	}
	if ok {
		return iterate(ctx, rt, c.Then)
	}
	return iterate(ctx, rt, c.Else)
}

// ---------------------------------------------------------------------------
// Program-level commands
// ---------------------------------------------------------------------------

// ClassInitCommand declares a class's fields in its class scope.
type ClassInitCommand struct {
	Class  *ClassScope
	Fields Sequence
}

func (c *ClassInitCommand) Kind() ControlKind { return Controlled }
func (c *ClassInitCommand) String() string    { return "init " + c.Class.Name() }

func (c *ClassInitCommand) Execute(ctx context.Context, rt *Runtime) error {
	return rt.withScope(c.Class, func() error {
		return rt.RunSequence(ctx, c.Fields)
	})
}

// EntryCommand invokes the program's entry method with default arguments.
type EntryCommand struct {
	Method *Method
}

func (c *EntryCommand) Kind() ControlKind { return Simple }
func (c *EntryCommand) String() string    { return c.Method.QualifiedName() + "()" }

func (c *EntryCommand) Execute(ctx context.Context, rt *Runtime) error {
	args := make([]*value.Value, len(c.Method.Params))
	for i, p := range c.Method.Params {
		args[i] = p.slot()
	}
	return rt.withScope(c.Method.Class, func() error {
		_, err := c.Method.Invoke(ctx, rt, args)
		return err
	})
}
