package vm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/baraco/console"
)

// ---------------------------------------------------------------------------
// Run state
// ---------------------------------------------------------------------------

// State is the lifecycle of the manager's current or last run.
type State uint8

const (
	Idle State = iota
	Running
	Paused
	Finished
	Cancelled
	Failed
)

var stateNames = [...]string{
	Idle:      "idle",
	Running:   "running",
	Paused:    "paused",
	Finished:  "completed",
	Cancelled: "aborted",
	Failed:    "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	sink        console.Sink
	precision   uint32
	maxDepth    int
	haltOnError bool
}

// WithSink sets the console that receives output and diagnostics.
func WithSink(s console.Sink) Option {
	return func(c *managerConfig) { c.sink = s }
}

// WithPrecision sets the significant digits of decimal arithmetic.
func WithPrecision(p uint32) Option {
	return func(c *managerConfig) { c.precision = p }
}

// WithMaxDepth bounds the call stack.
func WithMaxDepth(n int) Option {
	return func(c *managerConfig) { c.maxDepth = n }
}

// WithHaltOnError stops a run at the first failing statement instead of
// reporting it and continuing.
func WithHaltOnError(halt bool) Option {
	return func(c *managerConfig) { c.haltOnError = halt }
}

// Manager owns the execution state of one interpreter: the current run's
// runtime and monitor. Start runs on the caller's goroutine; the other
// methods may be called from any goroutine.
type Manager struct {
	cfg managerConfig

	mu      sync.Mutex
	running bool
	state   State
	runID   string
	img     *Image
	rt      *Runtime
	monitor *Monitor
	lastErr error
	started time.Time
	ended   time.Time
}

// NewManager creates an idle manager.
func NewManager(opts ...Option) *Manager {
	cfg := managerConfig{
		sink:      console.Discard,
		precision: DefaultPrecision,
		maxDepth:  DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{cfg: cfg}
}

// Run is a prepared execution of an image. The manager counts as running
// from Prepare until Execute returns.
type Run struct {
	ID  string
	m   *Manager
	rt  *Runtime
	img *Image
}

// Prepare reserves the manager for a run of img and assigns its id.
// Abort and pause requests made before Execute take effect at the first
// checkpoint. Only one run may be active at a time.
func (m *Manager) Prepare(img *Image) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil, ErrAlreadyRunning
	}
	m.running = true
	m.runID = uuid.New().String()
	m.monitor = NewMonitor()
	m.state = Running
	m.lastErr = nil
	m.img = img
	m.started = time.Now()
	m.ended = time.Time{}

	img.reset()
	rootScope := Scope(NewClassScope("<root>"))
	if img.Entry != nil {
		rootScope = img.Entry.Class
	}
	m.rt = NewRuntime(rootScope, m.monitor, RuntimeConfig{
		RunID:       m.runID,
		Sink:        m.cfg.sink,
		Precision:   m.cfg.precision,
		MaxDepth:    m.cfg.maxDepth,
		HaltOnError: m.cfg.haltOnError,
	})
	return &Run{ID: m.runID, m: m, rt: m.rt, img: img}, nil
}

// Start prepares and executes img on the calling goroutine.
func (m *Manager) Start(ctx context.Context, img *Image) error {
	r, err := m.Prepare(img)
	if err != nil {
		return err
	}
	return r.Execute(ctx)
}

// Execute runs the image to completion on the calling goroutine. It
// returns nil when the run completes, ErrCancelled when it was aborted,
// or the first failure when the manager halts on errors. A panic during
// the run ends it as failed and is returned as an error.
func (r *Run) Execute(ctx context.Context) (err error) {
	m, rt, runID := r.m, r.rt, r.ID

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run %s: internal error: %v", runID, p)
			r.fail(err)
		}

		final := Finished
		if IsCancelled(err) {
			final = Cancelled
		} else if err != nil {
			final = Failed
		}
		if d := rt.stack.Depth(); d != 0 {
			log.Errorf("run %s ended with %d frames on the stack", runID, d)
		}

		m.mu.Lock()
		m.running = false
		m.state = final
		m.lastErr = err
		m.ended = time.Now()
		m.mu.Unlock()
	}()

	if o, ok := m.cfg.sink.(console.RunObserver); ok {
		if err := o.BeginRun(runID); err != nil {
			log.Errorf("run %s: console: %s", runID, err)
		}
	}

	log.Infof("run %s started", runID)
	err = rt.RunSequence(ctx, r.img.Root)
	switch {
	case err == nil:
		log.Infof("run %s completed", runID)
	case IsCancelled(err):
		log.Infof("run %s aborted", runID)
	default:
		r.fail(err)
	}
	return err
}

// fail logs a failed run and reports it to the console.
func (r *Run) fail(err error) {
	log.Errorf("run %s failed: %s", r.ID, err)
	if werr := r.m.cfg.sink.Write(console.Entry{Kind: console.Diagnostic, Text: err.Error()}); werr != nil {
		log.Errorf("console: %s", werr)
	}
}

// RequestAbort asks the current run to stop at its next checkpoint.
// Without an active run it does nothing.
func (m *Manager) RequestAbort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.monitor.RequestAbort()
	}
}

// RequestPause asks the current run to block at its next checkpoint.
func (m *Manager) RequestPause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.monitor.RequestPause()
	}
}

// Resume releases a paused run.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.monitor.Resume()
	}
}

// IsAborted reports whether abort was requested for the current or last
// run.
func (m *Manager) IsAborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitor != nil && m.monitor.IsAborted()
}

// State returns the lifecycle state. A running run reports Paused once
// the interpreter is parked at a checkpoint.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && m.monitor.Parked() {
		return Paused
	}
	return m.state
}

// RunID returns the id of the current or last run.
func (m *Manager) RunID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runID
}

// Err returns the error the last run ended with.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Snapshot captures the observable state of the current or last run.
// Field values are only read while the interpreter is not executing:
// after the run, or while it is parked by a pause.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{RunID: m.runID, State: m.state.String()}
	if m.rt == nil {
		return s
	}
	parked := m.running && m.monitor.Parked()
	if parked {
		s.State = Paused.String()
	}
	s.Stack = m.rt.stack.Names()
	s.Current, _ = m.rt.Current()
	s.Checkpoints = m.monitor.Checkpoints()
	if m.lastErr != nil && !IsCancelled(m.lastErr) {
		s.Error = m.lastErr.Error()
	}
	if !m.started.IsZero() {
		end := m.ended
		if end.IsZero() {
			end = time.Now()
		}
		s.ElapsedMillis = end.Sub(m.started).Milliseconds()
	}
	if (!m.running || parked) && m.img != nil {
		s.Fields = make(map[string]string)
		for _, c := range m.img.Classes {
			fieldTexts(c, s.Fields)
		}
	}
	return s
}
