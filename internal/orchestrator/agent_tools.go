package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

// RegisterAgentTools adds the hierarchical control tools to the registry.
// Every one of them authorizes against the spawn graph: only an ancestor may
// act on a task.
func RegisterAgentTools(registry *tools.Registry, o *Orchestrator) error {
	all := []tools.Tool{
		&spawnAgent{o: o},
		&waitForAgent{o: o},
		&sendAgentMessage{o: o},
		&captureAgentEvents{o: o},
		&cancelAgent{o: o},
		&pauseAgent{o: o},
		&resumeAgent{o: o},
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register agent tool: %w", err)
		}
	}
	return nil
}

func agentMetadata(name string) tools.Metadata {
	return tools.Metadata{
		Name:       name,
		Category:   "agent",
		Tags:       []string{"agent", "control"},
		Permission: tools.PermissionNone,
	}
}

func taskIDProperty() map[string]tools.Property {
	return map[string]tools.Property{
		"task_id": {Type: "string", Description: "Target task id; must be a descendant of the caller"},
	}
}

type spawnAgent struct {
	o *Orchestrator
}

func (t *spawnAgent) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	prompt := call.String("prompt")
	if prompt == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'prompt'"), nil
	}
	title := call.String("title")
	if title == "" {
		title = firstWords(prompt, 8)
	}

	child, err := t.o.Spawn(ctx, call.TaskID, task.CreateSpec{
		Title:     title,
		Prompt:    prompt,
		AgentType: call.String("agent_type"),
	})
	if err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call,
		fmt.Sprintf("Spawned agent %s (%s)", child.ID, child.Title),
		map[string]any{"task_id": child.ID, "depth": child.Depth}), nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func (t *spawnAgent) Definition() tools.Definition {
	return tools.Definition{
		Name:        "spawn_agent",
		Description: "Spawn a child agent task with its own prompt. Returns the child task id for later control calls.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"prompt":     {Type: "string", Description: "Instructions for the child agent"},
				"title":      {Type: "string", Description: "Short label; derived from the prompt when omitted"},
				"agent_type": {Type: "string", Description: "Agent profile for the child"},
			},
			Required: []string{"prompt"},
		},
	}
}

func (t *spawnAgent) Metadata() tools.Metadata { return agentMetadata("spawn_agent") }

type waitForAgent struct {
	o *Orchestrator
}

func (t *waitForAgent) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	timeout := time.Duration(call.Int("timeout_seconds", 300)) * time.Second

	finished, err := t.o.WaitFor(ctx, call.TaskID, targetID, timeout)
	if err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call,
		fmt.Sprintf("Task %s finished with status %s", finished.ID, finished.Status),
		map[string]any{"task_id": finished.ID, "status": string(finished.Status)}), nil
}

func (t *waitForAgent) Definition() tools.Definition {
	props := taskIDProperty()
	props["timeout_seconds"] = tools.Property{Type: "integer", Description: "How long to wait before giving up"}
	return tools.Definition{
		Name:        "wait_for_agent",
		Description: "Block until a descendant task finishes or the timeout elapses.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: props, Required: []string{"task_id"}},
	}
}

func (t *waitForAgent) Metadata() tools.Metadata { return agentMetadata("wait_for_agent") }

type sendAgentMessage struct {
	o *Orchestrator
}

func (t *sendAgentMessage) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	message := call.String("message")
	if message == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'message'"), nil
	}
	if err := t.o.SendMessage(ctx, call.TaskID, targetID, message); err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call, fmt.Sprintf("Delivered message to %s", targetID), nil), nil
}

func (t *sendAgentMessage) Definition() tools.Definition {
	props := taskIDProperty()
	props["message"] = tools.Property{Type: "string", Description: "Text delivered into the target's running context"}
	return tools.Definition{
		Name:        "send_agent_message",
		Description: "Deliver an asynchronous message to a running descendant task.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: props, Required: []string{"task_id", "message"}},
	}
}

func (t *sendAgentMessage) Metadata() tools.Metadata { return agentMetadata("send_agent_message") }

type captureAgentEvents struct {
	o *Orchestrator
}

func (t *captureAgentEvents) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	limit := call.Int("limit", 20)

	summaries, err := t.o.CaptureEvents(ctx, call.TaskID, targetID, limit)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	var out strings.Builder
	for _, summary := range summaries {
		fmt.Fprintf(&out, "[%s] %s: %s\n",
			summary.Timestamp.Format(time.RFC3339), summary.Type, summary.Summary)
	}
	if out.Len() == 0 {
		out.WriteString("(no events)")
	}
	return tools.Ok(call, out.String(), map[string]any{"task_id": targetID, "count": len(summaries)}), nil
}

func (t *captureAgentEvents) Definition() tools.Definition {
	props := taskIDProperty()
	props["limit"] = tools.Property{Type: "integer", Description: "Maximum events returned, newest window"}
	return tools.Definition{
		Name:        "capture_agent_events",
		Description: "Return the most recent events for a descendant task as compact summaries.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: props, Required: []string{"task_id"}},
	}
}

func (t *captureAgentEvents) Metadata() tools.Metadata { return agentMetadata("capture_agent_events") }

type cancelAgent struct {
	o *Orchestrator
}

func (t *cancelAgent) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	if err := t.o.Cancel(ctx, call.TaskID, targetID); err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call, fmt.Sprintf("Cancelled task %s", targetID), map[string]any{"task_id": targetID}), nil
}

func (t *cancelAgent) Definition() tools.Definition {
	return tools.Definition{
		Name:        "cancel_agent",
		Description: "Cancel a descendant task. Its children keep running and must be cancelled explicitly.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: taskIDProperty(), Required: []string{"task_id"}},
	}
}

func (t *cancelAgent) Metadata() tools.Metadata { return agentMetadata("cancel_agent") }

type pauseAgent struct {
	o *Orchestrator
}

func (t *pauseAgent) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	if err := t.o.Pause(ctx, call.TaskID, targetID); err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call, fmt.Sprintf("Paused task %s", targetID), map[string]any{"task_id": targetID}), nil
}

func (t *pauseAgent) Definition() tools.Definition {
	return tools.Definition{
		Name:        "pause_agent",
		Description: "Pause an executing descendant task at its next step boundary.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: taskIDProperty(), Required: []string{"task_id"}},
	}
}

func (t *pauseAgent) Metadata() tools.Metadata { return agentMetadata("pause_agent") }

type resumeAgent struct {
	o *Orchestrator
}

func (t *resumeAgent) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	targetID := call.String("task_id")
	if err := t.o.Resume(ctx, call.TaskID, targetID); err != nil {
		return tools.Fail(call, err), nil
	}
	return tools.Ok(call, fmt.Sprintf("Resumed task %s", targetID), map[string]any{"task_id": targetID}), nil
}

func (t *resumeAgent) Definition() tools.Definition {
	return tools.Definition{
		Name:        "resume_agent",
		Description: "Resume a paused descendant task. Fails when no live executor exists.",
		InputSchema: tools.ParameterSchema{Type: "object", Properties: taskIDProperty(), Required: []string{"task_id"}},
	}
}

func (t *resumeAgent) Metadata() tools.Metadata { return agentMetadata("resume_agent") }
