package ast

// Shorthand constructors for front ends and tests.

// Int returns an integer literal.
func Int(text string) *Literal { return &Literal{Kind: IntLit, Text: text} }

// Dec returns a decimal literal.
func Dec(text string) *Literal { return &Literal{Kind: DecimalLit, Text: text} }

// Str returns a string literal; text excludes the quotes.
func Str(text string) *Literal { return &Literal{Kind: StringLit, Text: text} }

// Chr returns a char literal; text excludes the quotes.
func Chr(text string) *Literal { return &Literal{Kind: CharLit, Text: text} }

// Bool returns a boolean literal.
func Bool(b bool) *Literal {
	if b {
		return &Literal{Kind: BoolLit, Text: "true"}
	}
	return &Literal{Kind: BoolLit, Text: "false"}
}

// Id returns an identifier reference.
func Id(name string) *Ident { return &Ident{Name: name} }

// Bin returns a binary expression.
func Bin(op string, l, r Expr) *Binary { return &Binary{Op: op, Left: l, Right: r} }

// CallOf returns a function-call form.
func CallOf(name string, args ...Expr) *Call { return &Call{Name: name, Args: args} }

// Idx returns an array-index form on a named array.
func Idx(base string, index Expr) *Index { return &Index{Base: Id(base), Index: index} }

// Decl returns a local declaration of a scalar type.
func Decl(typ, name string, init Expr) *LocalDecl {
	return &LocalDecl{Type: TypeName{Name: typ}, Name: name, Init: init}
}

// Set returns an assignment to a named variable.
func Set(name string, v Expr) *Assign { return &Assign{Target: Id(name), Value: v} }

// Println returns a print statement that ends the line.
func Println(x Expr) *Print { return &Print{X: x, Newline: true} }
