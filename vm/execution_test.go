package vm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/console"
)

func sumLoop() *ast.For {
	return &ast.For{
		Init:   ast.Decl("int", "i", ast.Int("0")),
		Cond:   ast.Bin("<", ast.Id("i"), ast.Int("3")),
		Update: incr("i"),
		Body: []ast.Stmt{
			ast.Set("sum", ast.Bin("+", ast.Id("sum"), ast.Id("i"))),
		},
	}
}

func TestForLoopSum(t *testing.T) {
	buf, err := runProgram(t, mainOnly(
		ast.Decl("int", "sum", ast.Int("0")),
		sumLoop(),
		ast.Println(ast.Id("sum")),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "3\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "3\n")
	}
	if d := buf.Diagnostics(); len(d) != 0 {
		t.Errorf("unexpected diagnostics: %v", d)
	}
}

func TestLoopLocalsAreFreshPerIteration(t *testing.T) {
	loop := sumLoop()
	loop.Body = []ast.Stmt{
		ast.Decl("int", "t", ast.Id("i")),
		ast.Set("sum", ast.Bin("+", ast.Id("sum"), ast.Id("t"))),
	}
	buf, err := runProgram(t, mainOnly(
		ast.Decl("int", "sum", ast.Int("0")),
		loop,
		ast.Println(ast.Id("sum")),
		ast.Println(ast.Id("t")),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "3\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "3\n")
	}
	d := buf.Diagnostics()
	if len(d) != 1 || !strings.Contains(d[0], `undefined variable "t"`) {
		t.Errorf("diagnostics = %v, want one undefined t", d)
	}
}

func TestWhileAndDoWhile(t *testing.T) {
	buf, err := runProgram(t, mainOnly(
		ast.Decl("int", "n", ast.Int("0")),
		&ast.While{
			Cond: ast.Bin("<", ast.Id("n"), ast.Int("4")),
			Body: []ast.Stmt{incr("n")},
		},
		&ast.DoWhile{
			Body: []ast.Stmt{incr("n")},
			Cond: ast.Bool(false),
		},
		ast.Println(ast.Id("n")),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "5\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "5\n")
	}
}

func TestIfRunsOneBranch(t *testing.T) {
	branch := func(cond ast.Expr) *ast.If {
		return &ast.If{
			Cond: cond,
			Then: []ast.Stmt{ast.Println(ast.Str("then"))},
			Else: []ast.Stmt{ast.Println(ast.Str("else"))},
		}
	}
	buf, err := runProgram(t, mainOnly(
		branch(ast.Bin("==", ast.Int("1"), ast.Int("1"))),
		branch(ast.Bool(false)),
		&ast.If{Cond: ast.Bool(false), Then: []ast.Stmt{ast.Println(ast.Str("never"))}},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "then\nelse\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "then\nelse\n")
	}
}

func TestRecursionRestoresDepth(t *testing.T) {
	fact := method("fact", "int", []ast.Param{param("int", "n")},
		&ast.If{
			Cond: ast.Bin("<=", ast.Id("n"), ast.Int("1")),
			Then: []ast.Stmt{ret(ast.Int("1"))},
		},
		ret(ast.Bin("*", ast.Id("n"), ast.CallOf("fact", ast.Bin("-", ast.Id("n"), ast.Int("1"))))),
	)
	prog := program(fact, method("main", "void", nil,
		ast.Println(ast.Str("before")),
		ast.Println(ast.CallOf("fact", ast.Int("5"))),
		ast.Println(ast.Str("after")),
	))

	img := mustBuild(t, prog)
	var (
		m      *Manager
		out    []string
		depths []int
	)
	sink := console.SinkFunc(func(e console.Entry) error {
		out = append(out, e.Text)
		depths = append(depths, len(m.Snapshot().Stack))
		return nil
	})
	m = NewManager(WithSink(sink))

	if err := m.Start(context.Background(), img); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(out, "") != "before\n120\nafter\n" {
		t.Errorf("output = %q", strings.Join(out, ""))
	}
	if depths[0] != 1 || depths[2] != 1 {
		t.Errorf("stack depth before/after call = %d/%d, want 1/1", depths[0], depths[2])
	}
	if s := m.Snapshot(); len(s.Stack) != 0 {
		t.Errorf("stack after run = %v, want empty", s.Stack)
	}
}

func TestCallByValue(t *testing.T) {
	bump := method("bump", "void", []ast.Param{arrayParam("int", "a"), param("int", "x")},
		&ast.Assign{Target: ast.Idx("a", ast.Int("0")), Value: ast.Int("99")},
		ast.Set("x", ast.Int("5")),
	)
	prog := program(bump, method("main", "void", nil,
		declArray("int", "arr", arrayLit(ast.Int("1"), ast.Int("2"))),
		ast.Decl("int", "y", ast.Int("1")),
		callStmt("bump", ast.Id("arr"), ast.Id("y")),
		ast.Println(ast.Idx("arr", ast.Int("0"))),
		ast.Println(ast.Id("y")),
	))

	buf, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "1\n1\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "1\n1\n")
	}
}

func TestArgumentTypeMismatch(t *testing.T) {
	prog := program(
		method("f", "void", []ast.Param{param("int", "n")}, ast.Println(ast.Id("n"))),
		method("g", "void", []ast.Param{param("String", "s")}, ast.Println(ast.Id("s"))),
		method("main", "void", nil,
			callStmt("f", ast.Str("text")),
			callStmt("f"),
			callStmt("f", ast.Dec("2.75")),
			callStmt("g", ast.Int("5")),
			callStmt("f", ast.Dec("2.0")),
			callStmt("g", ast.Str("ok")),
		),
	)
	buf, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "2\nok\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "2\nok\n")
	}
	d := buf.Diagnostics()
	if len(d) != 4 {
		t.Fatalf("diagnostics = %v, want 4", d)
	}
	for _, msg := range d {
		if !strings.HasPrefix(msg, "type mismatch") {
			t.Errorf("diagnostic %q, want a type mismatch", msg)
		}
	}
}

func TestArraysAndPrint(t *testing.T) {
	buf, err := runProgram(t, mainOnly(
		declArray("int", "a", &ast.NewArray{Elem: "int", Size: ast.Int("3")}),
		&ast.Assign{Target: ast.Idx("a", ast.Int("1")), Value: ast.Dec("7.9")},
		&ast.IncDec{Target: ast.Idx("a", ast.Int("2")), Inc: true},
		ast.Println(ast.Id("a")),
		&ast.Print{X: ast.Str("no newline")},
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "[0, 7, 1]\nno newline"
	if buf.Output() != want {
		t.Errorf("output = %q, want %q", buf.Output(), want)
	}
}

func TestFailingStatementIsSkipped(t *testing.T) {
	prog := mainOnly(
		ast.Println(ast.Id("missing")),
		callStmt("nowhere"),
		ast.Println(ast.Str("after")),
	)

	buf, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "after\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "after\n")
	}
	d := buf.Diagnostics()
	if len(d) != 2 {
		t.Fatalf("diagnostics = %v, want 2", d)
	}
	if !strings.Contains(d[1], `undefined method "nowhere"`) {
		t.Errorf("diagnostic = %q, want undefined method", d[1])
	}
}

func TestHaltOnError(t *testing.T) {
	prog := mainOnly(
		ast.Println(ast.Id("missing")),
		ast.Println(ast.Str("after")),
	)

	buf, err := runProgram(t, prog, WithHaltOnError(true))
	if !IsKind(err, SymbolResolution) {
		t.Fatalf("err = %v, want SymbolResolution", err)
	}
	if buf.Output() != "" {
		t.Errorf("output = %q, want nothing", buf.Output())
	}
	if d := buf.Diagnostics(); len(d) != 1 {
		t.Errorf("diagnostics = %v, want 1", d)
	}
}

func TestConstRejectsAssignment(t *testing.T) {
	buf, err := runProgram(t, mainOnly(
		&ast.LocalDecl{Type: ast.TypeName{Name: "int"}, Name: "k", Init: ast.Int("1"), Const: true},
		ast.Set("k", ast.Int("2")),
		ast.Println(ast.Id("k")),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "1\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "1\n")
	}
	d := buf.Diagnostics()
	if len(d) != 1 || !strings.Contains(d[0], "cannot assign to constant") {
		t.Errorf("diagnostics = %v", d)
	}
}

func TestStackOverflow(t *testing.T) {
	prog := program(
		method("down", "void", nil, callStmt("down")),
		method("main", "void", nil, callStmt("down"), ast.Println(ast.Str("survived"))),
	)
	buf, err := runProgram(t, prog, WithMaxDepth(16))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "survived\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "survived\n")
	}
	d := buf.Diagnostics()
	if len(d) != 1 || !strings.HasPrefix(d[0], "stack overflow") {
		t.Errorf("diagnostics = %v, want one stack overflow", d)
	}
}

func TestAbortMidLoop(t *testing.T) {
	prog := program(
		method("spin", "void", nil,
			ast.Decl("int", "i", ast.Int("0")),
			&ast.While{
				Cond: ast.Bool(true),
				Body: []ast.Stmt{ast.Println(ast.Id("i")), incr("i")},
			},
		),
		method("main", "void", nil, callStmt("spin"), ast.Println(ast.Str("unreachable"))),
	)
	img := mustBuild(t, prog)

	var m *Manager
	buf := &console.Buffer{}
	sink := console.SinkFunc(func(e console.Entry) error {
		buf.Write(e)
		if len(buf.Entries()) == 3 {
			m.RequestAbort()
		}
		return nil
	})
	m = NewManager(WithSink(sink))

	err := m.Start(context.Background(), img)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if buf.Output() != "0\n1\n2\n" {
		t.Errorf("output = %q, want three lines", buf.Output())
	}
	if len(buf.Diagnostics()) != 0 {
		t.Errorf("cancellation produced diagnostics: %v", buf.Diagnostics())
	}
	if m.State() != Cancelled || !m.IsAborted() {
		t.Errorf("state = %s aborted=%v, want aborted", m.State(), m.IsAborted())
	}

	snap := m.Snapshot()
	if len(snap.Stack) != 0 {
		t.Errorf("frames left after abort: %v", snap.Stack)
	}
	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	back, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if back.RunID != snap.RunID || back.State != "aborted" {
		t.Errorf("snapshot round trip = %+v", back)
	}

	// The image can be run again after an abort.
	m2 := NewManager(WithSink(buf))
	buf.Reset()
	prog2 := mainOnly(ast.Println(ast.Str("again")))
	if err := m2.Start(context.Background(), mustBuild(t, prog2)); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestAbortBeforeForUpdate(t *testing.T) {
	loop := &ast.For{
		Init:   ast.Decl("int", "i", ast.Int("0")),
		Cond:   ast.Bin("<", ast.Id("i"), ast.Int("10")),
		Update: incr("updates"),
		Body:   []ast.Stmt{incr("i"), ast.Println(ast.Id("i"))},
	}
	prog := &ast.Program{Classes: []*ast.ClassDecl{{
		Name:    "Main",
		Fields:  []*ast.LocalDecl{ast.Decl("int", "updates", ast.Int("0"))},
		Methods: []*ast.MethodDecl{method("main", "void", nil, loop)},
	}}}
	img := mustBuild(t, prog)

	var m *Manager
	buf := &console.Buffer{}
	sink := console.SinkFunc(func(e console.Entry) error {
		buf.Write(e)
		m.RequestAbort()
		return nil
	})
	m = NewManager(WithSink(sink))

	if err := m.Start(context.Background(), img); !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if buf.Output() != "1\n" {
		t.Errorf("output = %q, want one iteration", buf.Output())
	}
	snap := m.Snapshot()
	if got := snap.Fields["Main.updates"]; got != "0" {
		t.Errorf("updates = %q, want 0: the update ran after abort", got)
	}
	if len(snap.Stack) != 0 {
		t.Errorf("frames left after abort: %v", snap.Stack)
	}
}

func TestHugeArrayIsIndexError(t *testing.T) {
	buf, err := runProgram(t, mainOnly(
		declArray("int", "a", &ast.NewArray{Elem: "int", Size: ast.Int("100000000000000")}),
		ast.Println(ast.Str("after")),
	))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Output() != "after\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "after\n")
	}
	d := buf.Diagnostics()
	if len(d) != 1 || !strings.HasPrefix(d[0], "index error") {
		t.Errorf("diagnostics = %v, want one index error", d)
	}
}

func TestPanicEndsRunAsFailed(t *testing.T) {
	img := mustBuild(t, mainOnly(ast.Println(ast.Str("boom"))))

	buf := &console.Buffer{}
	var once sync.Once
	sink := console.SinkFunc(func(e console.Entry) error {
		if e.Kind == console.Output {
			once.Do(func() { panic("sink exploded") })
		}
		return buf.Write(e)
	})
	m := NewManager(WithSink(sink))

	err := m.Start(context.Background(), img)
	if err == nil || !strings.Contains(err.Error(), "sink exploded") {
		t.Fatalf("err = %v, want the recovered panic", err)
	}
	if m.State() != Failed {
		t.Errorf("state = %s, want failed", m.State())
	}
	if d := buf.Diagnostics(); len(d) != 1 || !strings.Contains(d[0], "internal error") {
		t.Errorf("diagnostics = %v, want the internal error", d)
	}
	if s := m.Snapshot(); len(s.Stack) != 0 {
		t.Errorf("frames left after panic: %v", s.Stack)
	}

	// The manager is free for the next run.
	buf.Reset()
	if err := m.Start(context.Background(), img); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if buf.Output() != "boom\n" {
		t.Errorf("second run output = %q, want %q", buf.Output(), "boom\n")
	}
}

func TestBareReturnInValueMethod(t *testing.T) {
	prog := program(
		method("h", "int", nil, ret(nil)),
		method("main", "void", nil, ast.Println(ast.CallOf("h"))),
	)
	buf, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	d := buf.Diagnostics()
	if len(d) != 1 || !strings.HasPrefix(d[0], "type mismatch") || !strings.Contains(d[0], "must return") {
		t.Errorf("diagnostics = %v, want a missing return value mismatch", d)
	}
}

func TestContextCancellationStopsRun(t *testing.T) {
	prog := mainOnly(&ast.While{Cond: ast.Bool(true)})
	img := mustBuild(t, prog)
	m := NewManager()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Start(ctx, img); !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

func TestPauseAndResume(t *testing.T) {
	prog := &ast.Program{Classes: []*ast.ClassDecl{{
		Name:   "Main",
		Fields: []*ast.LocalDecl{ast.Decl("int", "count", ast.Int("0"))},
		Methods: []*ast.MethodDecl{method("main", "void", nil,
			ast.Println(ast.Str("start")),
			ast.Set("count", ast.Int("5")),
			ast.Println(ast.Id("count")),
		)},
	}}}
	img := mustBuild(t, prog)

	var m *Manager
	buf := &console.Buffer{}
	var once sync.Once
	sink := console.SinkFunc(func(e console.Entry) error {
		buf.Write(e)
		once.Do(m.RequestPause)
		return nil
	})
	m = NewManager(WithSink(sink))

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), img) }()

	deadline := time.Now().Add(5 * time.Second)
	for m.State() != Paused {
		if time.Now().After(deadline) {
			t.Fatal("run never paused")
		}
		time.Sleep(time.Millisecond)
	}

	snap := m.Snapshot()
	if snap.State != "paused" {
		t.Errorf("snapshot state = %q, want paused", snap.State)
	}
	if snap.Fields["Main.count"] != "0" {
		t.Errorf("count while paused = %q, want 0", snap.Fields["Main.count"])
	}
	if err := m.Start(context.Background(), img); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	m.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after resume")
	}

	if buf.Output() != "start\n5\n" {
		t.Errorf("output = %q, want %q", buf.Output(), "start\n5\n")
	}
	if got := m.Snapshot().Fields["Main.count"]; got != "5" {
		t.Errorf("count after run = %q, want 5", got)
	}
}
