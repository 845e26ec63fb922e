package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesutfelat/cowork-oss-sub004/internal/approval"
	"github.com/mesutfelat/cowork-oss-sub004/internal/eventlog"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/shared/logging"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// Lifecycle lets the registry report approval suspension to the task state
// machine without owning it. The orchestrator wires the graph in here.
type Lifecycle interface {
	// OnBlocked marks the task as awaiting approval.
	OnBlocked(taskID string)
	// OnUnblocked returns the task to executing after resolution.
	OnUnblocked(taskID string)
}

// Registry maps tool names to implementations and runs the dispatch
// pipeline: policy gate, approval gate, execution, event logging.
//
// A registry is an explicit per-runtime object, never a package singleton;
// tests construct isolated instances.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	gate       *approval.Gate
	log        eventlog.Log
	workspaces workspace.Manager
	lifecycle  Lifecycle
	logger     logging.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// Config assembles a Registry.
type Config struct {
	Gate       *approval.Gate
	Log        eventlog.Log
	Workspaces workspace.Manager
	Lifecycle  Lifecycle
	Logger     logging.Logger
	Metrics    *Metrics
}

func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("approval gate is required")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("event log is required")
	}
	if cfg.Workspaces == nil {
		return nil, fmt.Errorf("workspace manager is required")
	}
	return &Registry{
		tools:      make(map[string]Tool),
		gate:       cfg.Gate,
		log:        cfg.Log,
		workspaces: cfg.Workspaces,
		lifecycle:  cfg.Lifecycle,
		logger:     logging.OrNop(cfg.Logger),
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer("cowork/tools"),
	}, nil
}

// SetLifecycle wires the task state machine hook after construction; the
// orchestrator depends on the registry, not the other way around.
func (r *Registry) SetLifecycle(lifecycle Lifecycle) {
	r.mu.Lock()
	r.lifecycle = lifecycle
	r.mu.Unlock()
}

// Register adds a tool. Duplicate names are a wiring bug.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Metadata().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.tools[name] = tool
	return nil
}

// Manifest returns the definitions visible to a workspace under its current
// permission set, sorted by name. Disabled connectors and permission-gated
// tools are simply absent.
func (r *Registry) Manifest(ctx context.Context, workspaceID string) ([]Definition, error) {
	ws, err := r.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		if !Allowed(tool.Metadata(), ws.Permissions) {
			continue
		}
		if conn, ok := tool.(interface{ IsEnabled() bool }); ok && !conn.IsEnabled() {
			continue
		}
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Execute dispatches one call. It always returns a well-formed result: a
// dispatch failure is a failure result, never a panic or naked error the
// model cannot reason about.
//
// The permission policy is re-derived from the workspace on every call, so
// a toggle is visible to the very next dispatch.
func (r *Registry) Execute(ctx context.Context, call Call) *Result {
	r.appendEvent(ctx, call.TaskID, eventlog.TypeToolCall, map[string]any{
		"tool":  call.Name,
		"input": call.Arguments,
	})

	result := r.dispatch(ctx, call)

	payload := map[string]any{"tool": call.Name}
	if result.Success {
		payload["result"] = result.Content
	} else {
		payload["error"] = result.Error
		if result.ErrorKind != "" {
			payload["error_kind"] = string(result.ErrorKind)
		}
	}
	r.appendEvent(ctx, call.TaskID, eventlog.TypeToolResult, payload)
	return result
}

func (r *Registry) dispatch(ctx context.Context, call Call) *Result {
	ws, err := r.workspaces.Get(ctx, call.WorkspaceID)
	if err != nil {
		return Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "load workspace"))
	}

	r.mu.RLock()
	tool, exists := r.tools[call.Name]
	lifecycle := r.lifecycle
	r.mu.RUnlock()

	// A gated tool and a nonexistent tool are indistinguishable on
	// purpose: the error must not reveal capabilities the workspace was
	// not granted.
	if !exists || !Allowed(tool.Metadata(), ws.Permissions) {
		return Failf(call, runtimeerrors.KindUnknownTool, "unknown tool: %s", call.Name)
	}

	ctx = WithWorkspace(ctx, ws)

	if plan, required := r.approvalPlan(ctx, tool, call); required {
		if denied := r.awaitApproval(ctx, call, plan, lifecycle); denied != nil {
			return denied
		}
	}

	ctx, span := r.tracer.Start(ctx, "tool."+call.Name,
		trace.WithAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("task.id", call.TaskID),
		))
	defer span.End()

	start := time.Now()
	result, execErr := tool.Execute(ctx, call)
	elapsed := time.Since(start).Seconds()

	if execErr != nil {
		r.logger.Error("tool %s aborted: %v", call.Name, execErr)
		r.metrics.observe(call.Name, "error", elapsed)
		return Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, execErr, "tool %s", call.Name))
	}
	if result == nil {
		r.metrics.observe(call.Name, "error", elapsed)
		return Failf(call, runtimeerrors.KindIO, "tool %s returned no result", call.Name)
	}
	if result.Success {
		r.metrics.observe(call.Name, "success", elapsed)
	} else {
		r.metrics.observe(call.Name, "failure", elapsed)
	}
	return result
}

func (r *Registry) approvalPlan(ctx context.Context, tool Tool, call Call) (*ApprovalPlan, bool) {
	if planner, ok := tool.(ApprovalPlanner); ok {
		return planner.ApprovalFor(ctx, call)
	}
	meta := tool.Metadata()
	if !meta.RequiresApproval {
		return nil, false
	}
	return &ApprovalPlan{
		Kind:    meta.Name,
		Summary: fmt.Sprintf("Tool %s requests approval", meta.Name),
		Details: map[string]any{"arguments": call.Arguments},
	}, true
}

// awaitApproval suspends the call on the gate. It returns a denial result,
// or nil when the operator approved.
func (r *Registry) awaitApproval(ctx context.Context, call Call, plan *ApprovalPlan, lifecycle Lifecycle) *Result {
	if lifecycle != nil {
		lifecycle.OnBlocked(call.TaskID)
		defer lifecycle.OnUnblocked(call.TaskID)
	}

	r.appendEvent(ctx, call.TaskID, eventlog.TypeApprovalRequest, map[string]any{
		"kind":    plan.Kind,
		"summary": plan.Summary,
		"tool":    call.Name,
	})

	approvalID, decision, err := r.gate.Request(ctx, call.TaskID, plan.Kind, plan.Summary, plan.Details)

	r.appendEvent(ctx, call.TaskID, eventlog.TypeApprovalResolved, map[string]any{
		"approval_id": approvalID,
		"approved":    decision.Approved,
		"reason":      decision.Reason,
	})

	if err != nil {
		// The caller's context ended while suspended; the decision is
		// already a denial.
		return Failf(call, runtimeerrors.KindApprovalDenied, "user denied %s: %s", call.Name, decision.Reason)
	}
	if !decision.Approved {
		return Failf(call, runtimeerrors.KindApprovalDenied, "user denied %s: %s", call.Name, decision.Reason)
	}
	return nil
}

func (r *Registry) appendEvent(ctx context.Context, taskID string, eventType eventlog.Type, payload map[string]any) {
	if taskID == "" {
		return
	}
	if err := r.log.Append(ctx, eventlog.New(taskID, eventType, payload)); err != nil {
		r.logger.Warn("append %s event for %s: %v", eventType, taskID, err)
	}
}
