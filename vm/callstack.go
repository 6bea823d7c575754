package vm

import (
	"fmt"
	"sync"

	"github.com/chazu/baraco/value"
)

// DefaultMaxDepth bounds recursion when no explicit limit is configured.
const DefaultMaxDepth = 1024

// Frame is one active method invocation.
type Frame struct {
	Method *Method
	Scope  *LocalScope  // parameters and top-level locals of the body
	Return *value.Value // nil for void methods
}

// CallStack holds the active frames of a run. Only the interpreting
// goroutine pushes and pops; the lock lets controllers take snapshots.
type CallStack struct {
	mu     sync.Mutex
	frames []*Frame
	max    int
}

// NewCallStack creates an empty stack limited to max frames.
func NewCallStack(max int) *CallStack {
	if max <= 0 {
		max = DefaultMaxDepth
	}
	return &CallStack{max: max}
}

// Push adds a frame, failing with a StackOverflow error at the limit.
func (s *CallStack) Push(f *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) >= s.max {
		return &RuntimeError{
			Kind: StackOverflow,
			Expr: f.Method.Name,
			Err:  fmt.Errorf("call depth exceeds %d", s.max),
		}
	}
	s.frames = append(s.frames, f)
	return nil
}

// Pop removes and returns the top frame, or nil when empty.
func (s *CallStack) Pop() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	f := s.frames[n-1]
	s.frames[n-1] = nil
	s.frames = s.frames[:n-1]
	return f
}

// Top returns the innermost frame without removing it.
func (s *CallStack) Top() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of active frames.
func (s *CallStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Names returns "Class.method" for each frame, outermost first.
func (s *CallStack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Method.QualifiedName()
	}
	return out
}
