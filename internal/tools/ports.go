// Package tools defines the tool contract and the capability-gated registry
// that dispatches named tool calls.
package tools

import (
	"context"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
)

// Tool executes a single named call.
type Tool interface {
	// Execute runs the tool. Task-scoped failures come back inside the
	// Result, never as the Go error; the error return is reserved for
	// faults that should abort the dispatch itself.
	Execute(ctx context.Context, call Call) (*Result, error)

	// Definition returns the manifest entry exposed to the model.
	Definition() Definition

	// Metadata returns dispatch-relevant tool attributes.
	Metadata() Metadata
}

// Call is a request to execute a tool.
type Call struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Arguments   map[string]any `json:"arguments"`
	TaskID      string         `json:"task_id,omitempty"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
}

// String returns the string argument under key, or "".
func (c Call) String(key string) string {
	s, _ := c.Arguments[key].(string)
	return s
}

// Int returns the numeric argument under key, or fallback. JSON numbers
// arrive as float64.
func (c Call) Int(key string, fallback int) int {
	switch v := c.Arguments[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// Bool returns the boolean argument under key, or fallback.
func (c Call) Bool(key string, fallback bool) bool {
	if v, ok := c.Arguments[key].(bool); ok {
		return v
	}
	return fallback
}

// Result is the uniform tool outcome shape.
type Result struct {
	CallID  string `json:"call_id"`
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`

	// Error and ErrorKind are set only on failure.
	Error     string             `json:"error,omitempty"`
	ErrorKind runtimeerrors.Kind `json:"error_kind,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Ok builds a success result.
func Ok(call Call, content string, metadata map[string]any) *Result {
	return &Result{CallID: call.ID, Success: true, Content: content, Metadata: metadata}
}

// Fail builds a failure result carrying the error's kind.
func Fail(call Call, err error) *Result {
	return &Result{
		CallID:    call.ID,
		Success:   false,
		Error:     err.Error(),
		ErrorKind: runtimeerrors.KindOf(err),
	}
}

// Failf builds a failure result with an explicit kind and message.
func Failf(call Call, kind runtimeerrors.Kind, format string, args ...any) *Result {
	return Fail(call, runtimeerrors.New(kind, format, args...))
}

// Definition describes a tool for the model-facing manifest.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ParameterSchema `json:"input_schema"`
}

// Permission names the workspace capability a tool needs to appear in the
// manifest at all.
type Permission string

const (
	PermissionNone    Permission = ""
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionDelete  Permission = "delete"
	PermissionNetwork Permission = "network"
	PermissionShell   Permission = "shell"
)

// Metadata contains dispatch attributes.
type Metadata struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	// Permission gates manifest membership; a workspace without it never
	// sees the tool.
	Permission Permission `json:"permission,omitempty"`

	// RequiresApproval suspends every call to this tool on the approval
	// gate. Tools with per-call requirements implement ApprovalPlanner
	// instead.
	RequiresApproval bool `json:"requires_approval,omitempty"`
}

// ApprovalPlan is what the gate shows the operator for one call.
type ApprovalPlan struct {
	Kind    string
	Summary string
	Details map[string]any
}

// ApprovalPlanner lets a tool decide per call whether approval is needed
// and what the operator sees. Implemented by tools whose side effects
// depend on the arguments (connector actions, file edits with diffs). The
// context carries the dispatch workspace.
type ApprovalPlanner interface {
	ApprovalFor(ctx context.Context, call Call) (*ApprovalPlan, bool)
}

// ParameterSchema defines tool parameters in JSON Schema form.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
}
