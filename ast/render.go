package ast

import (
	"strconv"
	"strings"
)

// Render returns the canonical source text of an expression. Diagnostics
// use it to point at the offending expression.
func Render(e Expr) string {
	var b strings.Builder
	render(&b, e)
	return b.String()
}

func render(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Literal:
		switch n.Kind {
		case StringLit:
			b.WriteString(strconv.Quote(n.Text))
		case CharLit:
			b.WriteByte('\'')
			b.WriteString(n.Text)
			b.WriteByte('\'')
		default:
			b.WriteString(n.Text)
		}
	case *Ident:
		b.WriteString(n.Name)
	case *Call:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, a)
		}
		b.WriteByte(')')
	case *Index:
		render(b, n.Base)
		b.WriteByte('[')
		render(b, n.Index)
		b.WriteByte(']')
	case *Binary:
		render(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		render(b, n.Right)
	case *Unary:
		b.WriteString(n.Op)
		render(b, n.X)
	case *Paren:
		b.WriteByte('(')
		render(b, n.X)
		b.WriteByte(')')
	case *NewArray:
		b.WriteString("new ")
		b.WriteString(n.Elem)
		b.WriteByte('[')
		render(b, n.Size)
		b.WriteByte(']')
	case *ArrayLit:
		b.WriteByte('{')
		for i, el := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, el)
		}
		b.WriteByte('}')
	default:
		b.WriteString("<?>")
	}
}

// RenderStmt returns a one-line summary of a statement, used in logs and
// diagnostics. Nested bodies are elided.
func RenderStmt(s Stmt) string {
	switch n := s.(type) {
	case *LocalDecl:
		var b strings.Builder
		if n.Const {
			b.WriteString("const ")
		}
		b.WriteString(n.Type.String())
		b.WriteByte(' ')
		b.WriteString(n.Name)
		if n.Init != nil {
			b.WriteString(" = ")
			b.WriteString(Render(n.Init))
		}
		return b.String()
	case *Assign:
		return Render(n.Target) + " = " + Render(n.Value)
	case *IncDec:
		if n.Inc {
			return Render(n.Target) + "++"
		}
		return Render(n.Target) + "--"
	case *CallStmt:
		return Render(n.Call)
	case *Print:
		if n.Newline {
			return "println(" + Render(n.X) + ")"
		}
		return "print(" + Render(n.X) + ")"
	case *Return:
		if n.X == nil {
			return "return"
		}
		return "return " + Render(n.X)
	case *For:
		return "for (...; " + Render(n.Cond) + "; ...) {...}"
	case *While:
		return "while (" + Render(n.Cond) + ") {...}"
	case *DoWhile:
		return "do {...} while (" + Render(n.Cond) + ")"
	case *If:
		return "if (" + Render(n.Cond) + ") {...}"
	case *Block:
		return "{...}"
	}
	return "<?>"
}
