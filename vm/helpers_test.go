package vm

import (
	"context"
	"testing"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/console"
)

// method declares a method; returns is "void" or a type keyword.
func method(name, returns string, params []ast.Param, body ...ast.Stmt) *ast.MethodDecl {
	return &ast.MethodDecl{Name: name, Returns: returns, Params: params, Body: body}
}

func param(typ, name string) ast.Param {
	return ast.Param{Type: ast.TypeName{Name: typ}, Name: name}
}

func arrayParam(elem, name string) ast.Param {
	return ast.Param{Type: ast.TypeName{Name: elem, Array: true}, Name: name}
}

// program wraps methods into a single class Main.
func program(methods ...*ast.MethodDecl) *ast.Program {
	return &ast.Program{Classes: []*ast.ClassDecl{{Name: "Main", Methods: methods}}}
}

// mainOnly builds a program whose main method runs body.
func mainOnly(body ...ast.Stmt) *ast.Program {
	return program(method("main", "void", nil, body...))
}

func mustBuild(t *testing.T, prog *ast.Program) *Image {
	t.Helper()
	img, err := Build(prog, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return img
}

// runProgram builds and runs prog, returning the console contents.
func runProgram(t *testing.T, prog *ast.Program, opts ...Option) (*console.Buffer, error) {
	t.Helper()
	img := mustBuild(t, prog)
	buf := &console.Buffer{}
	m := NewManager(append([]Option{WithSink(buf)}, opts...)...)
	err := m.Start(context.Background(), img)
	return buf, err
}

// newTestRuntime returns a runtime positioned in an empty class scope.
func newTestRuntime() (*Runtime, *ClassScope) {
	cls := NewClassScope("Test")
	return NewRuntime(cls, nil, RuntimeConfig{}), cls
}

func declArray(elem, name string, init ast.Expr) *ast.LocalDecl {
	return &ast.LocalDecl{Type: ast.TypeName{Name: elem, Array: true}, Name: name, Init: init}
}

func arrayLit(elems ...ast.Expr) *ast.ArrayLit {
	return &ast.ArrayLit{Elems: elems}
}

func incr(name string) *ast.IncDec {
	return &ast.IncDec{Target: ast.Id(name), Inc: true}
}

func ret(x ast.Expr) *ast.Return { return &ast.Return{X: x} }

func callStmt(name string, args ...ast.Expr) *ast.CallStmt {
	return &ast.CallStmt{Call: ast.CallOf(name, args...)}
}
