// Package console provides the output sinks that receive program output
// and runtime diagnostics.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("baraco.console")

// EntryKind distinguishes program output from diagnostics.
type EntryKind uint8

const (
	Output EntryKind = iota
	Diagnostic
)

func (k EntryKind) String() string {
	if k == Diagnostic {
		return "diagnostic"
	}
	return "output"
}

// ParseEntryKind is the inverse of EntryKind.String.
func ParseEntryKind(s string) (EntryKind, error) {
	switch s {
	case "output":
		return Output, nil
	case "diagnostic":
		return Diagnostic, nil
	}
	return Output, fmt.Errorf("unknown entry kind %q", s)
}

// Entry is one unit written to a sink. Output text is written as-is,
// including any trailing newline; diagnostic text is a single message.
type Entry struct {
	Kind EntryKind
	Text string
}

// Sink receives entries from a run.
type Sink interface {
	Write(e Entry) error
}

// RunObserver is implemented by sinks that group entries per run.
type RunObserver interface {
	BeginRun(runID string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry) error

func (f SinkFunc) Write(e Entry) error { return f(e) }

// Discard drops every entry.
var Discard Sink = SinkFunc(func(Entry) error { return nil })

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer writes output to out and diagnostics, one per line, to diag.
type Writer struct {
	mu   sync.Mutex
	out  io.Writer
	diag io.Writer
}

// NewWriter creates a Writer. A nil diag sends diagnostics to out.
func NewWriter(out, diag io.Writer) *Writer {
	if diag == nil {
		diag = out
	}
	return &Writer{out: out, diag: diag}
}

func (w *Writer) Write(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.Kind == Diagnostic {
		_, err := fmt.Fprintf(w.diag, "error: %s\n", e.Text)
		return err
	}
	_, err := io.WriteString(w.out, e.Text)
	return err
}

// ---------------------------------------------------------------------------
// Buffer
// ---------------------------------------------------------------------------

// Buffer keeps entries in memory.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

func (b *Buffer) Write(e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	return nil
}

// BeginRun clears the buffer.
func (b *Buffer) BeginRun(string) error {
	b.Reset()
	return nil
}

// Reset drops all entries.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Entries returns a copy of everything written so far.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Output returns the concatenated output text.
func (b *Buffer) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, e := range b.entries {
		if e.Kind == Output {
			sb.WriteString(e.Text)
		}
	}
	return sb.String()
}

// Diagnostics returns the diagnostic messages in order.
func (b *Buffer) Diagnostics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.entries {
		if e.Kind == Diagnostic {
			out = append(out, e.Text)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Tee
// ---------------------------------------------------------------------------

// Tee fans entries out to several sinks. Every sink is written even when
// an earlier one fails; the first error is returned.
type Tee []Sink

func (t Tee) Write(e Entry) error {
	var first error
	for _, s := range t {
		if err := s.Write(e); err != nil {
			log.Warningf("sink write failed: %s", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// BeginRun forwards to every member that observes runs.
func (t Tee) BeginRun(runID string) error {
	for _, s := range t {
		if o, ok := s.(RunObserver); ok {
			if err := o.BeginRun(runID); err != nil {
				return err
			}
		}
	}
	return nil
}
