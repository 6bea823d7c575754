package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Image construction
// ---------------------------------------------------------------------------

// Image is a program ready to run: its class scopes with methods, the
// entry method, and the root sequence (field initialisation followed by
// the entry call).
type Image struct {
	Classes []*ClassScope
	Entry   *Method
	Root    Sequence
}

// Class returns the class scope with the given name, or nil.
func (img *Image) Class(name string) *ClassScope {
	for _, c := range img.Classes {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// reset clears field bindings left by a previous run.
func (img *Image) reset() {
	for _, c := range img.Classes {
		c.resetFields()
	}
}

// BuildError reports a program that cannot be turned into commands.
type BuildError struct {
	Pos ast.Pos
	Msg string
}

func (e *BuildError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return e.Msg
}

func buildErr(pos ast.Pos, format string, args ...any) error {
	return &BuildError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Build turns a program into an Image. entry names the entry method as
// "Class.method" or "method"; empty means the first class declaring
// main. Methods are registered before any body is built, so calls may
// refer to methods defined later in the class.
func Build(prog *ast.Program, entry string) (*Image, error) {
	if prog == nil || len(prog.Classes) == 0 {
		return nil, buildErr(ast.Pos{}, "program has no classes")
	}

	img := &Image{}
	type pending struct {
		m    *Method
		decl *ast.MethodDecl
	}
	var bodies []pending

	for _, cd := range prog.Classes {
		if img.Class(cd.Name) != nil {
			return nil, buildErr(cd.Pos, "class %s declared twice", cd.Name)
		}
		cls := NewClassScope(cd.Name)
		img.Classes = append(img.Classes, cls)

		for _, md := range cd.Methods {
			m, err := buildSignature(md)
			if err != nil {
				return nil, err
			}
			if err := cls.AddMethod(m); err != nil {
				return nil, buildErr(md.Pos, "%v", err)
			}
			bodies = append(bodies, pending{m, md})
		}
	}

	for _, p := range bodies {
		body, err := buildSequence(p.decl.Body)
		if err != nil {
			return nil, err
		}
		p.m.Body = body
	}

	for i, cd := range prog.Classes {
		fields := make(Sequence, 0, len(cd.Fields))
		for _, f := range cd.Fields {
			cmd, err := buildDecl(f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, cmd)
		}
		if len(fields) > 0 {
			img.Root = append(img.Root, &ClassInitCommand{Class: img.Classes[i], Fields: fields})
		}
	}

	m, err := img.findEntry(entry)
	if err != nil {
		return nil, err
	}
	img.Entry = m
	img.Root = append(img.Root, &EntryCommand{Method: m})
	return img, nil
}

func (img *Image) findEntry(entry string) (*Method, error) {
	if entry == "" {
		for _, c := range img.Classes {
			if m, err := c.ResolveMethod("main"); err == nil {
				return m, nil
			}
		}
		return nil, buildErr(ast.Pos{}, "no class declares main")
	}

	className, methodName, qualified := strings.Cut(entry, ".")
	if !qualified {
		methodName = className
		for _, c := range img.Classes {
			if m, err := c.ResolveMethod(methodName); err == nil {
				return m, nil
			}
		}
		return nil, buildErr(ast.Pos{}, "no class declares %s", methodName)
	}

	cls := img.Class(className)
	if cls == nil {
		return nil, buildErr(ast.Pos{}, "entry class %s not found", className)
	}
	m, err := cls.ResolveMethod(methodName)
	if err != nil {
		return nil, buildErr(ast.Pos{}, "entry %s: %v", entry, err)
	}
	return m, nil
}

// resolveType maps a declared type to a value kind. Unknown scalar types
// stay unresolved and adopt the kind of their first value.
func resolveType(pos ast.Pos, t ast.TypeName) (value.Kind, error) {
	k, ok := value.ParseKind(t.Name)
	if !ok && t.Array {
		return 0, buildErr(pos, "unknown array element type %q", t.Name)
	}
	return k, nil
}

func buildSignature(md *ast.MethodDecl) (*Method, error) {
	m := &Method{Name: md.Name}
	if md.Returns == "" || md.Returns == "void" {
		m.Void = true
	} else {
		k, ok := value.ParseKind(md.Returns)
		if !ok {
			return nil, buildErr(md.Pos, "method %s: unknown return type %q", md.Name, md.Returns)
		}
		m.Returns = k
	}

	seen := make(map[string]bool, len(md.Params))
	for _, p := range md.Params {
		if seen[p.Name] {
			return nil, buildErr(md.Pos, "method %s: duplicate parameter %s", md.Name, p.Name)
		}
		seen[p.Name] = true
		k, ok := value.ParseKind(p.Type.Name)
		if !ok {
			return nil, buildErr(md.Pos, "method %s: unknown parameter type %q", md.Name, p.Type)
		}
		m.Params = append(m.Params, Param{Name: p.Name, Kind: k, Array: p.Type.Array})
	}
	return m, nil
}

func buildSequence(stmts []ast.Stmt) (Sequence, error) {
	seq := make(Sequence, 0, len(stmts))
	for _, s := range stmts {
		cmd, err := buildStmt(s)
		if err != nil {
			return nil, err
		}
		seq = append(seq, cmd)
	}
	return seq, nil
}

func buildDecl(d *ast.LocalDecl) (Command, error) {
	k, err := resolveType(d.Pos, d.Type)
	if err != nil {
		return nil, err
	}
	if d.Const && d.Init == nil {
		return nil, buildErr(d.Pos, "constant %s needs a value", d.Name)
	}
	return &DeclareCommand{Decl: d, Type: k, Array: d.Type.Array}, nil
}

func checkTarget(pos ast.Pos, e ast.Expr) error {
	switch t := e.(type) {
	case *ast.Ident, *ast.Index:
		return nil
	case *ast.Paren:
		return checkTarget(pos, t.X)
	}
	return buildErr(pos, "cannot assign to %s", ast.Render(e))
}

func buildStmt(s ast.Stmt) (Command, error) {
	switch n := s.(type) {
	case *ast.LocalDecl:
		return buildDecl(n)

	case *ast.Assign:
		if err := checkTarget(n.Pos, n.Target); err != nil {
			return nil, err
		}
		return &AssignCommand{Stmt: n}, nil

	case *ast.IncDec:
		if err := checkTarget(n.Pos, n.Target); err != nil {
			return nil, err
		}
		return &IncDecCommand{Stmt: n}, nil

	case *ast.CallStmt:
		if n.Call == nil {
			return nil, buildErr(n.Pos, "empty call statement")
		}
		return &CallCommand{Call: n.Call}, nil

	case *ast.Print:
		return &PrintCommand{Stmt: n}, nil

	case *ast.Return:
		return &ReturnCommand{Stmt: n}, nil

	case *ast.For:
		c := &ForCommand{Stmt: n}
		var err error
		if n.Init != nil {
			if c.Init, err = buildStmt(n.Init); err != nil {
				return nil, err
			}
		}
		if n.Update != nil {
			if c.Update, err = buildStmt(n.Update); err != nil {
				return nil, err
			}
		}
		if c.Body, err = buildSequence(n.Body); err != nil {
			return nil, err
		}
		return c, nil

	case *ast.While:
		body, err := buildSequence(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileCommand{Stmt: n, Body: body}, nil

	case *ast.DoWhile:
		body, err := buildSequence(n.Body)
		if err != nil {
			return nil, err
		}
		return &DoWhileCommand{Stmt: n, Body: body}, nil

	case *ast.If:
		then, err := buildSequence(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := buildSequence(n.Else)
		if err != nil {
			return nil, err
		}
		return &IfCommand{Stmt: n, Then: then, Else: els}, nil

	case *ast.Block:
		body, err := buildSequence(n.Body)
		if err != nil {
			return nil, err
		}
		return &BlockCommand{Stmt: n, Body: body}, nil

	case nil:
		return nil, buildErr(ast.Pos{}, "nil statement")
	}
	return nil, buildErr(s.Position(), "unsupported statement %T", s)
}
