package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// ErrorKind classifies a RuntimeError.
type ErrorKind uint8

const (
	SymbolResolution ErrorKind = iota + 1
	TypeMismatch
	IndexError
	ArithmeticError
	StackOverflow
)

var errorKindNames = map[ErrorKind]string{
	SymbolResolution: "symbol resolution error",
	TypeMismatch:     "type mismatch",
	IndexError:       "index error",
	ArithmeticError:  "arithmetic error",
	StackOverflow:    "stack overflow",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("error(%d)", uint8(k))
}

// RuntimeError is a failure raised while executing a command. Expr holds
// the rendered source of the offending expression, when there is one.
type RuntimeError struct {
	Kind ErrorKind
	Expr string
	Err  error
}

func (e *RuntimeError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("%s in `%s`: %v", e.Kind, e.Expr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// ErrCancelled is returned once an abort was observed at a checkpoint, or
// when the run's context is done. It is not reported as a failure.
var ErrCancelled = errors.New("execution cancelled")

// ErrAlreadyRunning is returned by Manager.Start while another run is in
// progress.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// newError builds a RuntimeError for expression e (which may be nil).
func newError(kind ErrorKind, e ast.Expr, format string, args ...any) *RuntimeError {
	re := &RuntimeError{Kind: kind, Err: fmt.Errorf(format, args...)}
	if e != nil {
		re.Expr = ast.Render(e)
	}
	return re
}

// wrapError attaches expression context to err. RuntimeErrors raised
// deeper keep their own expression; value sentinels are classified.
func wrapError(e ast.Expr, err error) error {
	if err == nil || IsCancelled(err) || isReturn(err) {
		return err
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	kind := TypeMismatch
	if errors.Is(err, value.ErrIndexOutOfRange) {
		kind = IndexError
	}
	out := &RuntimeError{Kind: kind, Err: err}
	if e != nil {
		out.Expr = ast.Render(e)
	}
	return out
}

// IsKind reports whether err is a RuntimeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == kind
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// returnSignal unwinds from a return statement to the enclosing method.
// It never escapes Method.Invoke.
type returnSignal struct{}

func (returnSignal) Error() string { return "return outside of a method" }

func isReturn(err error) bool {
	var rs returnSignal
	return errors.As(err, &rs)
}
