// Package orchestrator composes the task graph, the tool registry, the
// approval gate, and the event log into the hierarchical control surface
// sub-agent tools call: spawn, wait, message, capture-events, cancel, pause,
// and resume.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesutfelat/cowork-oss-sub004/internal/approval"
	"github.com/mesutfelat/cowork-oss-sub004/internal/eventlog"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/shared/logging"
	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// Runner drives one task's agent loop. The orchestrator owns the lifecycle
// around it; the runner owns what happens inside a step. It must call
// session.Checkpoint between steps so pause and cancel take effect.
type Runner interface {
	Run(ctx context.Context, t *task.Task, session *Session) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, t *task.Task, session *Session) error

func (f RunnerFunc) Run(ctx context.Context, t *task.Task, session *Session) error {
	return f(ctx, t, session)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Graph      *task.Graph
	Registry   *tools.Registry
	Gate       *approval.Gate
	Log        eventlog.Log
	Workspaces workspace.Manager
	Runner     Runner
	Logger     logging.Logger
	Metrics    *Metrics

	// MaxTaskDepth bounds how deep the spawn tree may grow.
	MaxTaskDepth int
	// MaxChildWorkers bounds concurrently executing spawned children.
	MaxChildWorkers int
}

// Orchestrator mutates tasks in response to execution events and control
// calls. It is the only writer of task status.
type Orchestrator struct {
	graph      *task.Graph
	registry   *tools.Registry
	gate       *approval.Gate
	log        eventlog.Log
	workspaces workspace.Manager
	runner     Runner
	logger     logging.Logger
	metrics    *Metrics
	maxDepth   int

	baseCtx context.Context
	group   *errgroup.Group
	// children counts spawned tasks from Spawn returning until their
	// execute finishes. Incremented synchronously in Spawn so Wait never
	// races a child that is still queueing for a worker slot.
	children sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Graph == nil || cfg.Gate == nil || cfg.Log == nil || cfg.Workspaces == nil {
		return nil, fmt.Errorf("orchestrator: graph, gate, log, and workspaces are required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("orchestrator: runner is required")
	}
	if cfg.MaxTaskDepth <= 0 {
		cfg.MaxTaskDepth = 5
	}
	if cfg.MaxChildWorkers <= 0 {
		cfg.MaxChildWorkers = 4
	}

	group := &errgroup.Group{}
	group.SetLimit(cfg.MaxChildWorkers)

	o := &Orchestrator{
		graph:      cfg.Graph,
		registry:   cfg.Registry,
		gate:       cfg.Gate,
		log:        cfg.Log,
		workspaces: cfg.Workspaces,
		runner:     cfg.Runner,
		logger:     logging.OrNop(cfg.Logger),
		metrics:    cfg.Metrics,
		maxDepth:   cfg.MaxTaskDepth,
		baseCtx:    context.Background(),
		group:      group,
		sessions:   make(map[string]*Session),
	}
	if o.registry != nil {
		o.registry.SetLifecycle(o)
	}
	return o, nil
}

// OnBlocked marks a task suspended on an approval.
func (o *Orchestrator) OnBlocked(taskID string) {
	o.transition(taskID, task.StatusBlocked)
}

// OnUnblocked returns a task to executing after its approval resolves.
func (o *Orchestrator) OnUnblocked(taskID string) {
	if t, err := o.graph.Get(taskID); err != nil || t.Status != task.StatusBlocked {
		return
	}
	o.transition(taskID, task.StatusExecuting)
}

// Run creates a root task and executes it to completion on the calling
// goroutine. ctx bounds the whole run.
func (o *Orchestrator) Run(ctx context.Context, spec task.CreateSpec) (*task.Task, error) {
	spec.ParentID = ""
	t, err := o.graph.Create(spec)
	if err != nil {
		return nil, err
	}
	o.baseCtx = ctx
	o.execute(ctx, t.ID)
	return o.graph.Get(t.ID)
}

// Wait blocks until every spawned child has finished, including children
// still waiting for a worker slot.
func (o *Orchestrator) Wait() {
	o.children.Wait()
	o.group.Wait() //nolint:errcheck // child outcomes live in the graph
}

// Spawn creates a child of callerID and schedules it on the bounded worker
// pool. The child starts in status created and begins executing when a
// worker picks it up.
func (o *Orchestrator) Spawn(ctx context.Context, callerID string, spec task.CreateSpec) (*task.Task, error) {
	parent, err := o.graph.Get(callerID)
	if err != nil {
		return nil, err
	}
	if parent.Depth+1 > o.maxDepth {
		return nil, runtimeerrors.New(runtimeerrors.KindForbidden,
			"spawn depth limit %d reached", o.maxDepth)
	}

	spec.ParentID = callerID
	if spec.WorkspaceID == "" {
		spec.WorkspaceID = parent.WorkspaceID
	}

	t, err := o.graph.Create(spec)
	if err != nil {
		return nil, err
	}
	if err := o.materializeWorkspace(ctx, t); err != nil {
		return nil, err
	}

	o.children.Add(1)
	go func() {
		o.group.Go(func() error {
			defer o.children.Done()
			o.execute(o.baseCtx, t.ID)
			return nil
		})
	}()
	o.metrics.spawned()
	o.logger.Info("spawned task %s (parent=%s depth=%d)", t.ID, callerID, t.Depth)
	return o.graph.Get(t.ID)
}

// materializeWorkspace gives a task created against a shared ephemeral
// workspace its own dedicated one.
func (o *Orchestrator) materializeWorkspace(ctx context.Context, t *task.Task) error {
	ws, err := o.workspaces.Get(ctx, t.WorkspaceID)
	if err != nil {
		return err
	}
	if !ws.Ephemeral {
		return nil
	}
	dedicated, err := o.workspaces.Materialize(ctx, ws.ID, t.ID)
	if err != nil {
		return err
	}
	return o.graph.BindWorkspace(t.ID, dedicated.ID)
}

// execute drives one task from created to a terminal status.
func (o *Orchestrator) execute(ctx context.Context, taskID string) {
	t, err := o.graph.Get(taskID)
	if err != nil {
		o.logger.Error("execute: %v", err)
		return
	}

	session := newSession(ctx, taskID)
	o.mu.Lock()
	o.sessions[taskID] = session
	o.mu.Unlock()
	o.metrics.executorStarted()
	defer func() {
		session.Cancel()
		o.mu.Lock()
		delete(o.sessions, taskID)
		o.mu.Unlock()
		o.metrics.executorStopped()
	}()

	if err := o.transition(taskID, task.StatusExecuting); err != nil {
		return // cancelled before it started
	}

	start := time.Now()
	runErr := o.runner.Run(session.Context(), t, session)

	current, err := o.graph.Get(taskID)
	if err != nil {
		return
	}
	if !current.Status.IsTerminal() { // cancel may already have finalized the task
		switch {
		case runErr != nil && session.Context().Err() != nil:
			o.transition(taskID, task.StatusCancelled)
		case runErr != nil:
			o.appendEvent(taskID, eventlog.TypeStepFailed, map[string]any{"error": runErr.Error()})
			o.transition(taskID, task.StatusFailed)
		default:
			o.transition(taskID, task.StatusCompleted)
		}
	}
	if final, err := o.graph.Get(taskID); err == nil {
		o.metrics.observeFinished(final.Status, time.Since(start))
	}
}

// authorize enforces the ancestry predicate. An empty callerID is the
// operator surface (the CLI), which may act on any task.
func (o *Orchestrator) authorize(callerID, targetID string) error {
	if callerID == "" {
		return nil
	}
	if !o.graph.IsAncestor(callerID, targetID) {
		return runtimeerrors.New(runtimeerrors.KindForbidden,
			"task %s is not an ancestor of %s", callerID, targetID)
	}
	return nil
}

// Cancel stops a task: status first so new tool calls are rejected, then
// pending approvals denied so no suspended tool body completes, then the
// live executor. Children stay running; cancellation never cascades.
func (o *Orchestrator) Cancel(ctx context.Context, callerID, targetID string) error {
	if _, err := o.graph.Get(targetID); err != nil {
		return err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return err
	}
	if err := o.transition(targetID, task.StatusCancelled); err != nil {
		return err
	}
	if denied := o.gate.DenyAllForTask(targetID); denied > 0 {
		o.logger.Info("denied %d pending approval(s) for cancelled task %s", denied, targetID)
	}
	if session := o.session(targetID); session != nil {
		session.Cancel()
	}
	return nil
}

// Pause suspends an active task at its next checkpoint.
func (o *Orchestrator) Pause(ctx context.Context, callerID, targetID string) error {
	if _, err := o.graph.Get(targetID); err != nil {
		return err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return err
	}
	if err := o.transition(targetID, task.StatusPaused); err != nil {
		return err
	}
	if session := o.session(targetID); session != nil {
		session.Pause()
	}
	return nil
}

// Resume restarts a paused task. With no live session the task stays paused
// and the call fails with NO_EXECUTOR; sessions are never rehydrated.
func (o *Orchestrator) Resume(ctx context.Context, callerID, targetID string) error {
	t, err := o.graph.Get(targetID)
	if err != nil {
		return err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return err
	}
	if t.Status != task.StatusPaused {
		return runtimeerrors.New(runtimeerrors.KindTaskNotPaused,
			"cannot resume task in status %s", t.Status)
	}
	session := o.session(targetID)
	if session == nil {
		return runtimeerrors.New(runtimeerrors.KindNoExecutor,
			"no live executor for task %s", targetID)
	}
	if err := o.transition(targetID, task.StatusExecuting); err != nil {
		return err
	}
	session.Resume()
	return nil
}

// SendMessage delivers an asynchronous message into the target's running
// context.
func (o *Orchestrator) SendMessage(ctx context.Context, callerID, targetID, text string) error {
	if _, err := o.graph.Get(targetID); err != nil {
		return err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return err
	}
	session := o.session(targetID)
	if session == nil {
		return runtimeerrors.New(runtimeerrors.KindNoExecutor,
			"no live executor for task %s", targetID)
	}
	session.Deliver(text)
	o.appendEvent(targetID, eventlog.TypeMessage, map[string]any{"text": text, "from": callerID})
	return nil
}

// WaitFor blocks until the target reaches a terminal status, the timeout
// elapses (TIMEOUT), or the caller's own context is cancelled.
func (o *Orchestrator) WaitFor(ctx context.Context, callerID, targetID string, timeout time.Duration) (*task.Task, error) {
	if _, err := o.graph.Get(targetID); err != nil {
		return nil, err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return nil, err
	}
	done, err := o.graph.Done(targetID)
	if err != nil {
		return nil, err
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-done:
		return o.graph.Get(targetID)
	case <-deadline:
		return nil, runtimeerrors.New(runtimeerrors.KindTimeout,
			"task %s did not finish within %s", targetID, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CaptureEvents returns the most recent limit events for the target, each
// reduced to a compact summary.
func (o *Orchestrator) CaptureEvents(ctx context.Context, callerID, targetID string, limit int) ([]eventlog.Summary, error) {
	if _, err := o.graph.Get(targetID); err != nil {
		return nil, err
	}
	if err := o.authorize(callerID, targetID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	events, err := o.log.Recent(ctx, targetID, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]eventlog.Summary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, eventlog.Summarize(event))
	}
	return summaries, nil
}

// Graph exposes the task arena for read-side callers (CLI listing, tests).
func (o *Orchestrator) Graph() *task.Graph { return o.graph }

func (o *Orchestrator) session(taskID string) *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessions[taskID]
}

// transition applies a status change and records it in the event log.
func (o *Orchestrator) transition(taskID string, to task.Status) error {
	before, err := o.graph.Get(taskID)
	if err != nil {
		return err
	}
	if _, err := o.graph.SetStatus(taskID, to); err != nil {
		return err
	}
	o.appendEvent(taskID, eventlog.TypeStatusChanged, map[string]any{
		"from": string(before.Status),
		"to":   string(to),
	})
	return nil
}

func (o *Orchestrator) appendEvent(taskID string, eventType eventlog.Type, payload map[string]any) {
	if err := o.log.Append(context.Background(), eventlog.New(taskID, eventType, payload)); err != nil {
		o.logger.Warn("event append failed for task %s: %v", taskID, err)
	}
}
