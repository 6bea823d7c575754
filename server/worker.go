package server

import (
	"fmt"

	"github.com/chazu/baraco/vm"
)

// runRequest represents a unit of work to be executed on the run goroutine.
type runRequest struct {
	fn   func(*vm.Manager) error
	done chan error
}

// RunWorker executes interpreter runs one at a time on a dedicated
// goroutine. Control requests (abort, pause, status) go straight to the
// manager, which is safe for concurrent use; only runs are serialized.
type RunWorker struct {
	mgr      *vm.Manager
	requests chan runRequest
	quit     chan struct{}
}

// NewRunWorker creates a RunWorker and starts the processing goroutine.
func NewRunWorker(m *vm.Manager) *RunWorker {
	w := &RunWorker{
		mgr:      m,
		requests: make(chan runRequest, 8),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *RunWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function against the manager, recovering from panics.
func (w *RunWorker) execute(fn func(*vm.Manager) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("run worker: panic: %v", r)
			err = fmt.Errorf("run worker: %v", r)
		}
	}()
	return fn(w.mgr)
}

// Go submits fn and returns a channel that receives its result.
func (w *RunWorker) Go(fn func(*vm.Manager) error) <-chan error {
	req := runRequest{
		fn:   fn,
		done: make(chan error, 1),
	}
	w.requests <- req
	return req.done
}

// Do submits fn and blocks until it completes. Panics are returned as
// errors.
func (w *RunWorker) Do(fn func(*vm.Manager) error) error {
	return <-w.Go(fn)
}

// Stop shuts down the worker goroutine. A run in progress finishes first.
func (w *RunWorker) Stop() {
	close(w.quit)
}

// Manager returns the manager for goroutine-safe control calls.
func (w *RunWorker) Manager() *vm.Manager {
	return w.mgr
}
