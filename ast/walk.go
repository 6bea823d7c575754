package ast

// Inspect traverses the statements in depth-first source order, calling
// fn for every statement and expression. If fn returns false the node's
// children are skipped.
func Inspect(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Node) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch n := s.(type) {
	case *LocalDecl:
		inspectExpr(n.Init, fn)
	case *Assign:
		inspectExpr(n.Target, fn)
		inspectExpr(n.Value, fn)
	case *IncDec:
		inspectExpr(n.Target, fn)
	case *CallStmt:
		inspectExpr(n.Call, fn)
	case *Print:
		inspectExpr(n.X, fn)
	case *Return:
		inspectExpr(n.X, fn)
	case *For:
		inspectStmt(n.Init, fn)
		inspectExpr(n.Cond, fn)
		inspectStmt(n.Update, fn)
		Inspect(n.Body, fn)
	case *While:
		inspectExpr(n.Cond, fn)
		Inspect(n.Body, fn)
	case *DoWhile:
		Inspect(n.Body, fn)
		inspectExpr(n.Cond, fn)
	case *If:
		inspectExpr(n.Cond, fn)
		Inspect(n.Then, fn)
		Inspect(n.Else, fn)
	case *Block:
		Inspect(n.Body, fn)
	}
}

func inspectExpr(e Expr, fn func(Node) bool) {
	if e == nil {
		return
	}
	if c, ok := e.(*Call); ok && c == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range Children(e) {
		inspectExpr(child, fn)
	}
}
