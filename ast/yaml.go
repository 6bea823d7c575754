package ast

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML interchange
//
// The front end may hand over a program as a YAML document. Expressions
// are tagged mappings ({int: 3}, {op: "+", l: a, r: b}, {call: f, args:
// [..]}); bare scalars are shorthand for literals (numbers, booleans) and
// identifiers (strings). Statements are mappings keyed by their form
// (decl, set, incr, decr, call, print, println, return, for, while, do,
// if, block).
// ---------------------------------------------------------------------------

// DecodeError reports a malformed node in a YAML program.
type DecodeError struct {
	Line   int
	Column int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func errAt(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf(format, args...)}
}

func posOf(n *yaml.Node) Pos { return Pos{Line: n.Line, Column: n.Column} }

// LoadFile reads and decodes a YAML program file.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	prog, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return prog, nil
}

// Decode parses a YAML program. The document is either a mapping with a
// "classes" list or a single class mapping.
func Decode(data []byte) (*Program, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty program")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errAt(root, "program must be a mapping")
	}

	prog := &Program{}
	if classes := field(root, "classes"); classes != nil {
		if classes.Kind != yaml.SequenceNode {
			return nil, errAt(classes, "classes must be a list")
		}
		for _, c := range classes.Content {
			cls, err := decodeClass(c)
			if err != nil {
				return nil, err
			}
			prog.Classes = append(prog.Classes, cls)
		}
		return prog, nil
	}

	cls, err := decodeClass(root)
	if err != nil {
		return nil, err
	}
	prog.Classes = append(prog.Classes, cls)
	return prog, nil
}

// field returns the value node for key in a mapping, or nil.
func field(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func scalar(n *yaml.Node, key string) (string, bool) {
	f := field(n, key)
	if f == nil || f.Kind != yaml.ScalarNode {
		return "", false
	}
	return f.Value, true
}

func decodeType(n *yaml.Node, text string) (TypeName, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TypeName{}, errAt(n, "missing type")
	}
	if strings.HasSuffix(text, "[]") {
		return TypeName{Name: strings.TrimSuffix(text, "[]"), Array: true}, nil
	}
	return TypeName{Name: text}, nil
}

func decodeClass(n *yaml.Node) (*ClassDecl, error) {
	name, ok := scalar(n, "class")
	if !ok {
		name, ok = scalar(n, "name")
	}
	if !ok || name == "" {
		return nil, errAt(n, "class needs a name")
	}
	cls := &ClassDecl{Pos: posOf(n), Name: name}

	if fields := field(n, "fields"); fields != nil {
		stmts, err := decodeStmts(fields)
		if err != nil {
			return nil, err
		}
		for _, s := range stmts {
			d, ok := s.(*LocalDecl)
			if !ok {
				return nil, errAt(fields, "fields may only contain declarations")
			}
			cls.Fields = append(cls.Fields, d)
		}
	}

	if methods := field(n, "methods"); methods != nil {
		if methods.Kind != yaml.SequenceNode {
			return nil, errAt(methods, "methods must be a list")
		}
		for _, m := range methods.Content {
			md, err := decodeMethod(m)
			if err != nil {
				return nil, err
			}
			cls.Methods = append(cls.Methods, md)
		}
	}
	return cls, nil
}

func decodeMethod(n *yaml.Node) (*MethodDecl, error) {
	name, ok := scalar(n, "name")
	if !ok || name == "" {
		return nil, errAt(n, "method needs a name")
	}
	md := &MethodDecl{Pos: posOf(n), Name: name, Returns: "void"}
	if r, ok := scalar(n, "returns"); ok && r != "" {
		md.Returns = r
	}

	if params := field(n, "params"); params != nil {
		if params.Kind != yaml.SequenceNode {
			return nil, errAt(params, "params must be a list")
		}
		for _, p := range params.Content {
			typ, _ := scalar(p, "type")
			pname, _ := scalar(p, "name")
			if pname == "" {
				return nil, errAt(p, "parameter needs a name")
			}
			tn, err := decodeType(p, typ)
			if err != nil {
				return nil, err
			}
			md.Params = append(md.Params, Param{Type: tn, Name: pname})
		}
	}

	if body := field(n, "body"); body != nil {
		stmts, err := decodeStmts(body)
		if err != nil {
			return nil, err
		}
		md.Body = stmts
	}
	return md, nil
}

func decodeStmts(n *yaml.Node) ([]Stmt, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "expected a list of statements")
	}
	out := make([]Stmt, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := decodeStmt(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeOptStmts(n *yaml.Node, key string) ([]Stmt, error) {
	f := field(n, key)
	if f == nil {
		return nil, nil
	}
	return decodeStmts(f)
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errAt(n, "statement must be a mapping")
	}
	pos := posOf(n)

	if typ, ok := scalar(n, "decl"); ok {
		name, _ := scalar(n, "name")
		if name == "" {
			return nil, errAt(n, "declaration needs a name")
		}
		tn, err := decodeType(n, typ)
		if err != nil {
			return nil, err
		}
		d := &LocalDecl{Pos: pos, Type: tn, Name: name}
		if c, ok := scalar(n, "const"); ok && c == "true" {
			d.Const = true
		}
		if v := field(n, "value"); v != nil {
			if d.Init, err = decodeExpr(v); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	if t := field(n, "set"); t != nil {
		target, err := decodeExpr(t)
		if err != nil {
			return nil, err
		}
		v := field(n, "value")
		if v == nil {
			return nil, errAt(n, "assignment needs a value")
		}
		val, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &Assign{Pos: pos, Target: target, Value: val}, nil
	}

	for _, key := range []string{"incr", "decr"} {
		if t := field(n, key); t != nil {
			target, err := decodeExpr(t)
			if err != nil {
				return nil, err
			}
			return &IncDec{Pos: pos, Target: target, Inc: key == "incr"}, nil
		}
	}

	if _, ok := scalar(n, "call"); ok {
		e, err := decodeExpr(n)
		if err != nil {
			return nil, err
		}
		return &CallStmt{Pos: pos, Call: e.(*Call)}, nil
	}

	for _, key := range []string{"print", "println"} {
		if x := field(n, key); x != nil {
			e, err := decodeExpr(x)
			if err != nil {
				return nil, err
			}
			return &Print{Pos: pos, X: e, Newline: key == "println"}, nil
		}
	}

	if x := field(n, "return"); x != nil || hasKey(n, "return") {
		r := &Return{Pos: pos}
		if x != nil && x.Tag != "!!null" {
			e, err := decodeExpr(x)
			if err != nil {
				return nil, err
			}
			r.X = e
		}
		return r, nil
	}

	if f := field(n, "for"); f != nil {
		return decodeFor(f, pos)
	}

	if body := field(n, "do"); body != nil {
		stmts, err := decodeStmts(body)
		if err != nil {
			return nil, err
		}
		c := field(n, "while")
		if c == nil {
			return nil, errAt(n, "do needs a while condition")
		}
		cond, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		return &DoWhile{Pos: pos, Body: stmts, Cond: cond}, nil
	}

	if c := field(n, "while"); c != nil {
		cond, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		body, err := decodeOptStmts(n, "body")
		if err != nil {
			return nil, err
		}
		return &While{Pos: pos, Cond: cond, Body: body}, nil
	}

	if c := field(n, "if"); c != nil {
		cond, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		then, err := decodeOptStmts(n, "then")
		if err != nil {
			return nil, err
		}
		els, err := decodeOptStmts(n, "else")
		if err != nil {
			return nil, err
		}
		return &If{Pos: pos, Cond: cond, Then: then, Else: els}, nil
	}

	if b := field(n, "block"); b != nil {
		body, err := decodeStmts(b)
		if err != nil {
			return nil, err
		}
		return &Block{Pos: pos, Body: body}, nil
	}

	return nil, errAt(n, "unknown statement form")
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

func decodeFor(n *yaml.Node, pos Pos) (Stmt, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errAt(n, "for must be a mapping")
	}
	f := &For{Pos: pos}
	var err error
	if init := field(n, "init"); init != nil {
		if f.Init, err = decodeStmt(init); err != nil {
			return nil, err
		}
	}
	c := field(n, "cond")
	if c == nil {
		return nil, errAt(n, "for needs a cond")
	}
	if f.Cond, err = decodeExpr(c); err != nil {
		return nil, err
	}
	if upd := field(n, "update"); upd != nil {
		if f.Update, err = decodeStmt(upd); err != nil {
			return nil, err
		}
	}
	if f.Body, err = decodeOptStmts(n, "body"); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeExprs(n *yaml.Node) ([]Expr, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "expected a list of expressions")
	}
	out := make([]Expr, 0, len(n.Content))
	for _, c := range n.Content {
		e, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	pos := posOf(n)

	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!int":
			return &Literal{Pos: pos, Kind: IntLit, Text: n.Value}, nil
		case "!!float":
			return &Literal{Pos: pos, Kind: DecimalLit, Text: n.Value}, nil
		case "!!bool":
			return &Literal{Pos: pos, Kind: BoolLit, Text: strings.ToLower(n.Value)}, nil
		case "!!str":
			if n.Value == "" {
				return nil, errAt(n, "empty identifier")
			}
			return &Ident{Pos: pos, Name: n.Value}, nil
		}
		return nil, errAt(n, "unexpected scalar %q", n.Value)
	case yaml.MappingNode:
	default:
		return nil, errAt(n, "expression must be a scalar or a mapping")
	}

	literals := []struct {
		key  string
		kind LiteralKind
	}{
		{"int", IntLit},
		{"dec", DecimalLit},
		{"str", StringLit},
		{"char", CharLit},
		{"bool", BoolLit},
	}
	for _, l := range literals {
		if v, ok := scalar(n, l.key); ok {
			return &Literal{Pos: pos, Kind: l.kind, Text: v}, nil
		}
	}

	if name, ok := scalar(n, "id"); ok {
		return &Ident{Pos: pos, Name: name}, nil
	}

	if name, ok := scalar(n, "call"); ok {
		args, err := decodeExprs(field(n, "args"))
		if err != nil {
			return nil, err
		}
		return &Call{Pos: pos, Name: name, Args: args}, nil
	}

	if b := field(n, "index"); b != nil {
		base, err := decodeExpr(b)
		if err != nil {
			return nil, err
		}
		at := field(n, "at")
		if at == nil {
			return nil, errAt(n, "index needs an 'at' expression")
		}
		idx, err := decodeExpr(at)
		if err != nil {
			return nil, err
		}
		return &Index{Pos: pos, Base: base, Index: idx}, nil
	}

	if op, ok := scalar(n, "op"); ok {
		if x := field(n, "x"); x != nil {
			operand, err := decodeExpr(x)
			if err != nil {
				return nil, err
			}
			return &Unary{Pos: pos, Op: op, X: operand}, nil
		}
		l, r := field(n, "l"), field(n, "r")
		if l == nil || r == nil {
			return nil, errAt(n, "operator %q needs l and r", op)
		}
		left, err := decodeExpr(l)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		return &Binary{Pos: pos, Op: op, Left: left, Right: right}, nil
	}

	if x := field(n, "paren"); x != nil {
		inner, err := decodeExpr(x)
		if err != nil {
			return nil, err
		}
		return &Paren{Pos: pos, X: inner}, nil
	}

	if elem, ok := scalar(n, "new"); ok {
		s := field(n, "size")
		if s == nil {
			return nil, errAt(n, "new array needs a size")
		}
		size, err := decodeExpr(s)
		if err != nil {
			return nil, err
		}
		return &NewArray{Pos: pos, Elem: elem, Size: size}, nil
	}

	if a := field(n, "array"); a != nil {
		elems, err := decodeExprs(a)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{Pos: pos, Elems: elems}, nil
	}

	return nil, errAt(n, "unknown expression form")
}
