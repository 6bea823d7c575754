package vm

import (
	"context"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Monitor: cooperative pause and abort
// ---------------------------------------------------------------------------

// Monitor carries the abort flag and pause request of a single run. A
// controller goroutine flips them; the interpreter observes them only at
// checkpoints.
type Monitor struct {
	aborted   atomic.Bool // cached abort state
	abortCh   chan struct{}
	abortOnce sync.Once

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
	parked   atomic.Bool // interpreter is blocked in a pause

	checkpoints atomic.Int64
}

// NewMonitor returns a monitor with no requests pending.
func NewMonitor() *Monitor {
	return &Monitor{abortCh: make(chan struct{})}
}

// RequestAbort asks the run to stop at its next checkpoint. It also wakes
// a paused run.
func (m *Monitor) RequestAbort() {
	m.aborted.Store(true)
	m.abortOnce.Do(func() { close(m.abortCh) })
}

// IsAborted reports whether abort was requested.
func (m *Monitor) IsAborted() bool {
	return m.aborted.Load()
}

// RequestPause makes the next checkpoint block until Resume or abort.
func (m *Monitor) RequestPause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.paused {
		m.paused = true
		m.resumeCh = make(chan struct{})
	}
}

// Resume releases a pending or active pause.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		m.paused = false
		close(m.resumeCh)
	}
}

// Parked reports whether the interpreter is currently blocked at a
// checkpoint by a pause.
func (m *Monitor) Parked() bool {
	return m.parked.Load()
}

// Checkpoints returns how many checkpoints the run has passed.
func (m *Monitor) Checkpoints() int64 {
	return m.checkpoints.Load()
}

// Checkpoint is called by the interpreter between units of work. It
// returns ErrCancelled once abort was requested or ctx is done, and blocks
// while a pause is in effect.
func (m *Monitor) Checkpoint(ctx context.Context) error {
	m.checkpoints.Add(1)
	if m.aborted.Load() {
		return ErrCancelled
	}
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
	}

	m.mu.Lock()
	paused, ch := m.paused, m.resumeCh
	m.mu.Unlock()
	if paused {
		m.parked.Store(true)
		defer m.parked.Store(false)
		select {
		case <-ch:
		case <-m.abortCh:
			return ErrCancelled
		case <-ctx.Done():
			return ErrCancelled
		}
	}

	if m.aborted.Load() {
		return ErrCancelled
	}
	return nil
}
