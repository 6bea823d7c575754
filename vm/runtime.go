package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/tliron/commonlog"

	"github.com/chazu/baraco/console"
	"github.com/chazu/baraco/value"
)

var log = commonlog.GetLogger("baraco.vm")

// DefaultPrecision is the number of significant digits kept by decimal
// arithmetic when no explicit precision is configured.
const DefaultPrecision = 34

// newArithContext returns the decimal context used by a run.
func newArithContext(precision uint32) *apd.Context {
	if precision == 0 {
		precision = DefaultPrecision
	}
	ctx := apd.BaseContext.WithPrecision(precision)
	ctx.Rounding = apd.RoundHalfEven
	return ctx
}

// Runtime is the execution state threaded through every command of a
// run: the current scope, the call stack, the monitor and the console.
// It is owned by the interpreting goroutine.
type Runtime struct {
	runID       string
	monitor     *Monitor
	stack       *CallStack
	scope       Scope
	sink        console.Sink
	arith       *apd.Context
	eval        *Evaluator
	haltOnError bool

	mu      sync.Mutex
	current string
	state   CommandState
}

// RuntimeConfig carries the settings of a run.
type RuntimeConfig struct {
	RunID       string
	Sink        console.Sink
	Precision   uint32
	MaxDepth    int
	HaltOnError bool
}

// NewRuntime creates a runtime whose current scope is scope.
func NewRuntime(scope Scope, monitor *Monitor, cfg RuntimeConfig) *Runtime {
	if monitor == nil {
		monitor = NewMonitor()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = console.Discard
	}
	rt := &Runtime{
		runID:       cfg.RunID,
		monitor:     monitor,
		stack:       NewCallStack(cfg.MaxDepth),
		scope:       scope,
		sink:        sink,
		arith:       newArithContext(cfg.Precision),
		haltOnError: cfg.HaltOnError,
	}
	rt.eval = &Evaluator{rt: rt}
	return rt
}

// Scope returns the current scope.
func (rt *Runtime) Scope() Scope { return rt.scope }

// Stack returns the call stack.
func (rt *Runtime) Stack() *CallStack { return rt.stack }

// Monitor returns the run's monitor.
func (rt *Runtime) Monitor() *Monitor { return rt.monitor }

// Evaluator returns the expression evaluator bound to this runtime.
func (rt *Runtime) Evaluator() *Evaluator { return rt.eval }

// withScope runs fn with s as the current scope and restores the previous
// scope afterwards, whatever fn returns.
func (rt *Runtime) withScope(s Scope, fn func() error) error {
	prev := rt.scope
	rt.scope = s
	defer func() { rt.scope = prev }()
	return fn()
}

// checkpoint is where the run observes pause and abort requests.
func (rt *Runtime) checkpoint(ctx context.Context) error {
	return rt.monitor.Checkpoint(ctx)
}

// RunSequence executes seq in order, passing a checkpoint before each
// command. A failing command is reported and skipped unless the run halts
// on errors. Cancellation and returns always propagate.
func (rt *Runtime) RunSequence(ctx context.Context, seq Sequence) error {
	for _, cmd := range seq {
		if err := rt.checkpoint(ctx); err != nil {
			rt.progress(cmd, Aborted)
			return err
		}

		rt.progress(cmd, Executing)
		log.Debugf("exec %s", cmd)
		err := cmd.Execute(ctx, rt)
		switch {
		case err == nil:
			rt.progress(cmd, Completed)
		case IsCancelled(err):
			rt.progress(cmd, Aborted)
			return err
		case isReturn(err):
			rt.progress(cmd, Completed)
			return err
		case rt.haltOnError:
			rt.progress(cmd, Completed)
			return err
		default:
			rt.progress(cmd, Completed)
			rt.report(cmd, err)
		}
	}
	return nil
}

// report sends a statement failure to the console and the log.
func (rt *Runtime) report(cmd Command, err error) {
	log.Warningf("statement `%s` failed: %s", cmd, err)
	if werr := rt.sink.Write(console.Entry{Kind: console.Diagnostic, Text: err.Error()}); werr != nil {
		log.Errorf("console: %s", werr)
	}
}

// emit writes program output.
func (rt *Runtime) emit(text string) error {
	if err := rt.sink.Write(console.Entry{Kind: console.Output, Text: text}); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func (rt *Runtime) progress(cmd Command, s CommandState) {
	rt.mu.Lock()
	rt.current = cmd.String()
	rt.state = s
	rt.mu.Unlock()
}

// Current returns the most recent command and its state.
func (rt *Runtime) Current() (string, CommandState) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current, rt.state
}

// Lookup resolves a variable from the current scope.
func (rt *Runtime) Lookup(name string) (*value.Value, error) {
	return ResolveVariable(rt.scope, name)
}
