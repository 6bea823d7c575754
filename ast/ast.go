// Package ast defines the syntax tree handed to the interpreter by the
// parsing front end.
//
// Expressions and statements are closed sum types: every node implements a
// marker method, and consumers switch over the concrete node types.
package ast

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// Pos is a source location reported by the front end. Zero means unknown.
type Pos struct {
	Line   int
	Column int
}

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
	node() // marker method
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// TypeName is a declared type, e.g. "int" or "string[]".
type TypeName struct {
	Name  string // element type keyword
	Array bool
}

func (t TypeName) String() string {
	if t.Array {
		return t.Name + "[]"
	}
	return t.Name
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// LiteralKind tags literal nodes.
type LiteralKind uint8

const (
	IntLit LiteralKind = iota
	DecimalLit
	StringLit
	CharLit
	BoolLit
)

// Literal is a constant written in source. Text holds the literal's source
// form without surrounding quotes.
type Literal struct {
	Pos  Pos
	Kind LiteralKind
	Text string
}

// Ident references a variable.
type Ident struct {
	Pos  Pos
	Name string
}

// Call is a function-call form: a method name followed by an argument list.
type Call struct {
	Pos  Pos
	Name string
	Args []Expr
}

// Index is an array-index form with exactly two sub-expressions.
type Index struct {
	Pos   Pos
	Base  Expr
	Index Expr
}

// Binary is an infix operator application.
type Binary struct {
	Pos   Pos
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operator application ("-" or "!").
type Unary struct {
	Pos Pos
	Op  string
	X   Expr
}

// Paren is a parenthesised expression.
type Paren struct {
	Pos Pos
	X   Expr
}

// NewArray allocates an array: new int[n].
type NewArray struct {
	Pos  Pos
	Elem string
	Size Expr
}

// ArrayLit is an array initializer: {a, b, c}.
type ArrayLit struct {
	Pos   Pos
	Elems []Expr
}

func (n *Literal) Position() Pos  { return n.Pos }
func (n *Ident) Position() Pos    { return n.Pos }
func (n *Call) Position() Pos     { return n.Pos }
func (n *Index) Position() Pos    { return n.Pos }
func (n *Binary) Position() Pos   { return n.Pos }
func (n *Unary) Position() Pos    { return n.Pos }
func (n *Paren) Position() Pos    { return n.Pos }
func (n *NewArray) Position() Pos { return n.Pos }
func (n *ArrayLit) Position() Pos { return n.Pos }

func (n *Literal) node()  {}
func (n *Ident) node()    {}
func (n *Call) node()     {}
func (n *Index) node()    {}
func (n *Binary) node()   {}
func (n *Unary) node()    {}
func (n *Paren) node()    {}
func (n *NewArray) node() {}
func (n *ArrayLit) node() {}

func (n *Literal) expr()  {}
func (n *Ident) expr()    {}
func (n *Call) expr()     {}
func (n *Index) expr()    {}
func (n *Binary) expr()   {}
func (n *Unary) expr()    {}
func (n *Paren) expr()    {}
func (n *NewArray) expr() {}
func (n *ArrayLit) expr() {}

// Children returns the direct sub-expressions of e in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Call:
		return n.Args
	case *Index:
		return []Expr{n.Base, n.Index}
	case *Binary:
		return []Expr{n.Left, n.Right}
	case *Unary:
		return []Expr{n.X}
	case *Paren:
		return []Expr{n.X}
	case *NewArray:
		return []Expr{n.Size}
	case *ArrayLit:
		return n.Elems
	}
	return nil
}

// IsCall reports whether e is a function-call form, looking through
// parentheses.
func IsCall(e Expr) bool {
	for {
		switch n := e.(type) {
		case *Call:
			return true
		case *Paren:
			e = n.X
		default:
			return false
		}
	}
}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// LocalDecl declares a variable, optionally initialised.
type LocalDecl struct {
	Pos   Pos
	Type  TypeName
	Name  string
	Init  Expr // may be nil
	Const bool
}

// Assign stores Value into Target, which is an *Ident or *Index.
type Assign struct {
	Pos    Pos
	Target Expr
	Value  Expr
}

// IncDec is x++ or x--.
type IncDec struct {
	Pos    Pos
	Target Expr
	Inc    bool
}

// CallStmt is a bare method call used as a statement.
type CallStmt struct {
	Pos  Pos
	Call *Call
}

// Print writes the value of X to the console.
type Print struct {
	Pos     Pos
	X       Expr
	Newline bool
}

// Return leaves the current method. X is nil for void returns.
type Return struct {
	Pos Pos
	X   Expr
}

// For is a for-style loop. Init and Update may be nil.
type For struct {
	Pos    Pos
	Init   Stmt
	Cond   Expr
	Update Stmt
	Body   []Stmt
}

// While is a pre-tested loop.
type While struct {
	Pos  Pos
	Cond Expr
	Body []Stmt
}

// DoWhile is a post-tested loop.
type DoWhile struct {
	Pos  Pos
	Body []Stmt
	Cond Expr
}

// If runs Then when Cond holds, otherwise Else (which may be empty).
type If struct {
	Pos  Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Block is a nested statement list with its own scope.
type Block struct {
	Pos  Pos
	Body []Stmt
}

func (n *LocalDecl) Position() Pos { return n.Pos }
func (n *Assign) Position() Pos    { return n.Pos }
func (n *IncDec) Position() Pos    { return n.Pos }
func (n *CallStmt) Position() Pos  { return n.Pos }
func (n *Print) Position() Pos     { return n.Pos }
func (n *Return) Position() Pos    { return n.Pos }
func (n *For) Position() Pos       { return n.Pos }
func (n *While) Position() Pos     { return n.Pos }
func (n *DoWhile) Position() Pos   { return n.Pos }
func (n *If) Position() Pos        { return n.Pos }
func (n *Block) Position() Pos     { return n.Pos }

func (n *LocalDecl) node() {}
func (n *Assign) node()    {}
func (n *IncDec) node()    {}
func (n *CallStmt) node()  {}
func (n *Print) node()     {}
func (n *Return) node()    {}
func (n *For) node()       {}
func (n *While) node()     {}
func (n *DoWhile) node()   {}
func (n *If) node()        {}
func (n *Block) node()     {}

func (n *LocalDecl) stmt() {}
func (n *Assign) stmt()    {}
func (n *IncDec) stmt()    {}
func (n *CallStmt) stmt()  {}
func (n *Print) stmt()     {}
func (n *Return) stmt()    {}
func (n *For) stmt()       {}
func (n *While) stmt()     {}
func (n *DoWhile) stmt()   {}
func (n *If) stmt()        {}
func (n *Block) stmt()     {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Param is a formal method parameter.
type Param struct {
	Type TypeName
	Name string
}

// MethodDecl declares a method. Returns is "void" for methods without a
// result.
type MethodDecl struct {
	Pos     Pos
	Name    string
	Returns string
	Params  []Param
	Body    []Stmt
}

// ClassDecl groups fields and methods.
type ClassDecl struct {
	Pos     Pos
	Name    string
	Fields  []*LocalDecl
	Methods []*MethodDecl
}

// Program is a whole compilation unit.
type Program struct {
	Classes []*ClassDecl
}
