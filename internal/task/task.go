// Package task defines the task model, its lifecycle state machine, and the
// parent/child graph that hierarchical control is authorized against.
package task

import (
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusCreated   Status = "created"
	StatusExecuting Status = "executing"
	// StatusPaused is entered only through the explicit pause edge and
	// left only through resume or cancel.
	StatusPaused Status = "paused"
	// StatusBlocked means the task is suspended awaiting approval.
	StatusBlocked   Status = "blocked"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is final. Terminal tasks accept no
// further transition; a restart is a new task id.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the task is making (or able to make) progress:
// executing, or suspended on an approval.
func (s Status) IsActive() bool {
	return s == StatusExecuting || s == StatusBlocked
}

// canTransition encodes the one-directional lifecycle with the explicit
// pause/resume and blocked/unblocked edges.
func canTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	switch from {
	case StatusCreated:
		return to == StatusExecuting || to == StatusCancelled || to == StatusFailed
	case StatusExecuting:
		switch to {
		case StatusPaused, StatusBlocked, StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
	case StatusPaused:
		return to == StatusExecuting || to == StatusCancelled
	case StatusBlocked:
		return to == StatusExecuting || to == StatusPaused || to == StatusFailed || to == StatusCancelled
	}
	return false
}

// Task is one unit of agent-driven work.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Prompt      string `json:"prompt"`
	WorkspaceID string `json:"workspace_id"`
	Status      Status `json:"status"`

	// ParentID is empty for root tasks. Depth is 0 for roots and
	// parent.Depth+1 otherwise; the graph maintains the invariant.
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`

	AgentType string `json:"agent_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Executor is the live in-memory execution of a task. Executors are
// ephemeral: a process restart evicts them and resume then fails with
// NO_EXECUTOR rather than rehydrating.
type Executor interface {
	// Pause asks the executor to stop issuing new work.
	Pause()

	// Resume restarts a paused executor.
	Resume()

	// Cancel stops the executor; in-flight tool calls see their context
	// cancelled.
	Cancel()

	// Deliver injects an asynchronous operator/parent message into the
	// running context. Never blocks.
	Deliver(text string)
}
