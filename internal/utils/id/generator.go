// Package id produces prefixed, time-ordered identifiers for runtime entities.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewTaskID generates a new task identifier with a stable prefix for display.
func NewTaskID() string {
	return newIdentifier("task")
}

// NewEventID generates a new event identifier.
func NewEventID() string {
	return newIdentifier("event")
}

// NewApprovalID generates a new approval-request identifier.
func NewApprovalID() string {
	return newIdentifier("approval")
}

// NewWorkspaceID generates a new workspace identifier.
func NewWorkspaceID() string {
	return newIdentifier("workspace")
}

// NewCallID generates a new tool-call identifier.
func NewCallID() string {
	return newIdentifier("call")
}

func newIdentifier(prefix string) string {
	// UUIDv7 keeps identifiers sortable by creation time; fall back to v4
	// when the clock source misbehaves.
	body, err := uuid.NewV7()
	if err != nil {
		body = uuid.New()
	}
	return fmt.Sprintf("%s-%s", prefix, body.String())
}

// Prefix reports the entity prefix of an identifier, or "" when absent.
func Prefix(identifier string) string {
	idx := strings.IndexByte(identifier, '-')
	if idx <= 0 {
		return ""
	}
	return identifier[:idx]
}
