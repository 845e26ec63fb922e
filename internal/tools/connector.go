package tools

import (
	"context"
	"fmt"
	"strings"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
)

// Connector is the contract third-party service tools conform to. The
// runtime does not implement connectors; it adapts them into the registry
// so first- and third-party tools dispatch identically.
type Connector interface {
	Name() string
	Description() string
	IsEnabled() bool

	// ExecuteAction performs one named action against the external
	// service. Mutating actions pass through the approval gate before
	// this is called.
	ExecuteAction(ctx context.Context, input map[string]any) (*ActionResult, error)

	// InputSchema describes the accepted action input.
	InputSchema() ParameterSchema
}

// ActionResult is the uniform connector response shape.
type ActionResult struct {
	Success bool           `json:"success"`
	Action  string         `json:"action"`
	Status  string         `json:"status,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Raw     string         `json:"raw,omitempty"`
}

// mutatingVerbs are the action prefixes that always require approval.
var mutatingVerbs = []string{"create", "update", "delete", "send", "move", "archive", "write"}

// ConnectorTool adapts a Connector to the Tool contract.
type ConnectorTool struct {
	connector Connector
}

func NewConnectorTool(connector Connector) *ConnectorTool {
	return &ConnectorTool{connector: connector}
}

// IsEnabled is consulted by the manifest builder; a disabled connector is
// absent, not erroring.
func (t *ConnectorTool) IsEnabled() bool {
	return t.connector.IsEnabled()
}

// ApprovalFor requires approval for any mutating verb; read-style actions
// pass straight through.
func (t *ConnectorTool) ApprovalFor(_ context.Context, call Call) (*ApprovalPlan, bool) {
	action := strings.ToLower(call.String("action"))
	for _, verb := range mutatingVerbs {
		if strings.HasPrefix(action, verb) {
			return &ApprovalPlan{
				Kind:    t.connector.Name(),
				Summary: fmt.Sprintf("%s wants to run %q", t.connector.Name(), action),
				Details: map[string]any{"action": action, "input": call.Arguments},
			}, true
		}
	}
	return nil, false
}

func (t *ConnectorTool) Execute(ctx context.Context, call Call) (*Result, error) {
	if !t.connector.IsEnabled() {
		return Failf(call, runtimeerrors.KindUnknownTool, "unknown tool: %s", call.Name), nil
	}
	action, err := t.connector.ExecuteAction(ctx, call.Arguments)
	if err != nil {
		return Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "%s action", t.connector.Name())), nil
	}
	if !action.Success {
		return Failf(call, runtimeerrors.KindIO, "%s action %s failed: %s",
			t.connector.Name(), action.Action, action.Status), nil
	}
	return Ok(call, action.Raw, map[string]any{
		"action": action.Action,
		"status": action.Status,
		"data":   action.Data,
	}), nil
}

func (t *ConnectorTool) Definition() Definition {
	return Definition{
		Name:        t.connector.Name(),
		Description: t.connector.Description(),
		InputSchema: t.connector.InputSchema(),
	}
}

func (t *ConnectorTool) Metadata() Metadata {
	return Metadata{
		Name:       t.connector.Name(),
		Category:   "connector",
		Permission: PermissionNetwork,
	}
}
