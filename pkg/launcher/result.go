// Package launcher implements the local worker pool (C4) and the
// single-threaded launcher event loop (C5) that together simulate
// container allocation when the system runs without an external resource
// manager: task payloads run in-process against the same umbilical
// contract a real container would speak over RPC.
package launcher

import "context"

// ExitStatus classifies how a TaskRunner finished.
type ExitStatus int

const (
	// ExitSuccess is a normal, successful completion.
	ExitSuccess ExitStatus = iota
	// ExitAskedToDie is a successful completion after the umbilical told
	// the payload to die (e.g. its container was torn down).
	ExitAskedToDie
	// ExitExecutionFailure is any other non-success outcome.
	ExitExecutionFailure
)

// ExecutionResult is what a TaskRunner produces.
type ExecutionResult struct {
	ExitStatus   ExitStatus
	ErrorMessage string
	Cause        error
}

// TaskRunner is the opaque unit of work the local worker pool executes.
// The pool never inspects what it does, only how it finishes: it must
// observe ctx and return promptly after cancellation where possible, but a
// TaskRunner that ignores ctx and runs to completion is still reported
// normally.
type TaskRunner func(ctx context.Context) (*ExecutionResult, error)
