// Package eventlog is the append-only history of task execution.
//
// Events for a task are appended in call order and read back in that same
// order; nothing is ever re-ordered or retracted. The log is the transcript
// a human reviews to see why an action did or did not happen.
package eventlog

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

// Type tags an event.
type Type string

const (
	TypeToolCall         Type = "tool_call"
	TypeToolResult       Type = "tool_result"
	TypeApprovalRequest  Type = "approval_requested"
	TypeApprovalResolved Type = "approval_resolved"
	TypeStatusChanged    Type = "status_changed"
	TypeStepFailed       Type = "step_failed"
	TypeMessage          Type = "message"
	TypeAssistantMessage Type = "assistant_message"
)

// Event is one append-only history record.
type Event struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	// Seq is the per-log append sequence; it breaks timestamp ties so
	// read-back order always equals append order.
	Seq int64 `json:"seq"`
}

// New constructs an event ready for Append.
func New(taskID string, eventType Type, payload map[string]any) *Event {
	return &Event{
		ID:        id.NewEventID(),
		TaskID:    taskID,
		Timestamp: time.Now(),
		Type:      eventType,
		Payload:   payload,
	}
}

// Log is the append-only event store port. Implementations must be safe for
// concurrent append and read.
type Log interface {
	Append(ctx context.Context, event *Event) error

	// List returns every event for a task in append order.
	List(ctx context.Context, taskID string) ([]*Event, error)

	// Recent returns the last limit events for a task, still in append
	// order (oldest of the returned window first).
	Recent(ctx context.Context, taskID string, limit int) ([]*Event, error)
}

// Summary reduces an event to the compact shape hierarchical control calls
// return: timestamp, type, and a short type-specific rendering.
type Summary struct {
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Summary   string    `json:"summary"`
}

// Summarize renders the type-specific one-liner for an event.
func Summarize(event *Event) Summary {
	return Summary{
		Timestamp: event.Timestamp,
		Type:      event.Type,
		Summary:   renderSummary(event),
	}
}

func renderSummary(event *Event) string {
	payload := event.Payload
	str := func(key string) string {
		if payload == nil {
			return ""
		}
		s, _ := payload[key].(string)
		return s
	}
	switch event.Type {
	case TypeToolCall:
		return fmt.Sprintf("called %s", str("tool"))
	case TypeToolResult:
		if errText := str("error"); errText != "" {
			return fmt.Sprintf("%s failed: %s", str("tool"), clip(errText, 120))
		}
		return fmt.Sprintf("%s succeeded", str("tool"))
	case TypeApprovalRequest:
		return clip(str("summary"), 120)
	case TypeApprovalResolved:
		if approved, _ := payload["approved"].(bool); approved {
			return "approved"
		}
		return "denied: " + clip(str("reason"), 100)
	case TypeStatusChanged:
		return fmt.Sprintf("%s -> %s", str("from"), str("to"))
	case TypeMessage, TypeAssistantMessage:
		return clip(str("text"), 120)
	case TypeStepFailed:
		return clip(str("error"), 120)
	default:
		if path := str("path"); path != "" {
			return path
		}
		return string(event.Type)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
