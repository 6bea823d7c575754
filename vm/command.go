package vm

import (
	"context"
)

// ---------------------------------------------------------------------------
// Command model
// ---------------------------------------------------------------------------

// ControlKind tells how a command relates to child sequences.
type ControlKind uint8

const (
	// Simple commands have no children.
	Simple ControlKind = iota
	// Controlled commands own one child sequence (loops, blocks, bodies).
	Controlled
	// Conditional commands own two child sequences and run one of them.
	Conditional
)

func (k ControlKind) String() string {
	switch k {
	case Controlled:
		return "controlled"
	case Conditional:
		return "conditional"
	}
	return "simple"
}

// CommandState is the lifecycle of one command execution.
type CommandState uint8

const (
	Pending CommandState = iota
	Executing
	Completed
	Aborted
)

func (s CommandState) String() string {
	switch s {
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "pending"
}

// Command is a unit of execution built from a statement.
type Command interface {
	// Execute runs the command against the runtime. It returns
	// ErrCancelled when an abort is observed.
	Execute(ctx context.Context, rt *Runtime) error

	// Kind reports the command's control kind.
	Kind() ControlKind

	// String returns a one-line rendering used in logs and diagnostics.
	String() string
}

// Sequence is an ordered list of commands run strictly in order.
type Sequence []Command
