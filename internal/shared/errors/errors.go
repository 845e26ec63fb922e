// Package errors defines the runtime error taxonomy.
//
// Every task-scoped failure carries a stable Kind so callers (and the model
// reading a tool result) can branch on the failure class instead of parsing
// message text. Kinds are wire-stable strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a runtime failure.
type Kind string

const (
	// KindForbidden marks an authorization failure on a hierarchical
	// control call: the caller is not an ancestor of the target.
	KindForbidden Kind = "FORBIDDEN"

	// KindUnknownTool marks a tool name outside the dispatchable set for
	// the current workspace policy. Gated tools are reported identically
	// to nonexistent ones.
	KindUnknownTool Kind = "UNKNOWN_TOOL"

	// KindTaskNotFound marks a control call that names no known task.
	KindTaskNotFound Kind = "TASK_NOT_FOUND"

	// KindTaskAlreadyFinished marks a cancel against a terminal task.
	KindTaskAlreadyFinished Kind = "TASK_ALREADY_FINISHED"

	// KindTaskNotRunning marks a pause against a non-active task.
	KindTaskNotRunning Kind = "TASK_NOT_RUNNING"

	// KindTaskNotPaused marks a resume against a non-paused task.
	KindTaskNotPaused Kind = "TASK_NOT_PAUSED"

	// KindNoExecutor marks a resume whose target has no live in-memory
	// executor (process restarted, executor evicted).
	KindNoExecutor Kind = "NO_EXECUTOR"

	// KindPathOutsideWorkspace marks a sandbox escape attempt.
	KindPathOutsideWorkspace Kind = "PATH_OUTSIDE_WORKSPACE"

	// KindApprovalDenied marks a gated action the operator rejected.
	KindApprovalDenied Kind = "APPROVAL_DENIED"

	// KindTimeout marks a wait that elapsed before the target finished.
	KindTimeout Kind = "TIMEOUT"

	// KindIO marks an underlying read/write/spawn failure surfaced with
	// the original message.
	KindIO Kind = "IO"
)

// Error is a kinded runtime error. It wraps an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is works against a bare kinded error.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New returns a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or KindIO for plain errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindIO
}

// HasKind reports whether err carries the given kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
