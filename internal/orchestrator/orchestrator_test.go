package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesutfelat/cowork-oss-sub004/internal/approval"
	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/eventlog"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools/builtin"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

type fixture struct {
	orch       *Orchestrator
	graph      *task.Graph
	gate       *approval.Gate
	log        *eventlog.MemoryLog
	registry   *tools.Registry
	ws         *workspace.Workspace
	workspaces *workspace.MemoryManager
}

// idleRunner checkpoints until its session is cancelled, so tests can drive
// control operations against a live executor.
func idleRunner() Runner {
	return RunnerFunc(func(ctx context.Context, t *task.Task, session *Session) error {
		for {
			if err := session.Checkpoint(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Millisecond):
			}
		}
	})
}

func newFixture(t *testing.T, runner Runner) *fixture {
	t.Helper()
	graph := task.NewGraph()
	gate := approval.NewGate(time.Second, nil)
	log := eventlog.NewMemoryLog()
	workspaces := workspace.NewMemoryManager()
	ws := &workspace.Workspace{
		ID:          "ws-test",
		RootPath:    t.TempDir(),
		Permissions: workspace.Permissions{Read: true, Write: true, Shell: true},
	}
	workspaces.Put(ws)

	registry, err := tools.NewRegistry(tools.Config{Gate: gate, Log: log, Workspaces: workspaces})
	require.NoError(t, err)
	require.NoError(t, builtin.Register(registry, config.Default().Limits))

	orch, err := New(Config{
		Graph:           graph,
		Registry:        registry,
		Gate:            gate,
		Log:             log,
		Workspaces:      workspaces,
		Runner:          runner,
		MaxTaskDepth:    3,
		MaxChildWorkers: 4,
	})
	require.NoError(t, err)
	require.NoError(t, RegisterAgentTools(registry, orch))

	return &fixture{orch: orch, graph: graph, gate: gate, log: log, registry: registry, ws: ws, workspaces: workspaces}
}

// newRoot registers an executing root task so control calls have a caller.
func (f *fixture) newRoot(t *testing.T) *task.Task {
	t.Helper()
	root, err := f.graph.Create(task.CreateSpec{Title: "root", WorkspaceID: f.ws.ID})
	require.NoError(t, err)
	_, err = f.graph.SetStatus(root.ID, task.StatusExecuting)
	require.NoError(t, err)
	return root
}

func (f *fixture) spawnAndAwait(t *testing.T, parentID string) *task.Task {
	t.Helper()
	child, err := f.orch.Spawn(context.Background(), parentID, task.CreateSpec{Title: "child", Prompt: "work"})
	require.NoError(t, err)
	waitForStatus(t, f.graph, child.ID, task.StatusExecuting)
	return child
}

func waitForStatus(t *testing.T, g *task.Graph, taskID string, want task.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		current, err := g.Get(taskID)
		require.NoError(t, err)
		if current.Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	current, _ := g.Get(taskID)
	t.Fatalf("task %s is %s, want %s", taskID, current.Status, want)
}

func TestSpawnBuildsHierarchy(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)

	child := f.spawnAndAwait(t, root.ID)
	assert.Equal(t, root.ID, child.ParentID)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, f.ws.ID, child.WorkspaceID, "child inherits the parent workspace")
	assert.True(t, f.graph.IsAncestor(root.ID, child.ID))

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestSpawnDepthLimit(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)

	current := root
	for depth := 1; depth <= 3; depth++ {
		child := f.spawnAndAwait(t, current.ID)
		current = child
	}

	_, err := f.orch.Spawn(context.Background(), current.ID, task.CreateSpec{Title: "too deep"})
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindForbidden), "err = %v", err)

	for id := current.ID; id != root.ID; {
		parent, _ := f.graph.Get(id)
		require.NoError(t, f.orch.Cancel(context.Background(), "", id))
		id = parent.ParentID
	}
	f.orch.Wait()
}

func TestWaitCoversFreshlySpawnedChild(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, tk *task.Task, session *Session) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	f := newFixture(t, runner)
	root := f.newRoot(t)

	// Wait is called before the child has reached a worker; it must still
	// block until the child finishes.
	child, err := f.orch.Spawn(context.Background(), root.ID, task.CreateSpec{Title: "child"})
	require.NoError(t, err)
	f.orch.Wait()

	got, err := f.graph.Get(child.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
}

func TestCancelChild(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	got, err := f.graph.Get(child.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCancelled, got.Status)

	// A second cancel is a precondition failure, not a no-op.
	err = f.orch.Cancel(context.Background(), root.ID, child.ID)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindTaskAlreadyFinished), "err = %v", err)
	f.orch.Wait()
}

func TestCancelDoesNotCascade(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)
	grandchild := f.spawnAndAwait(t, child.ID)

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))

	got, err := f.graph.Get(grandchild.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.IsActive(), "cancelling a parent must not cancel its children")

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, grandchild.ID))
	f.orch.Wait()
}

func TestNonAncestorForbidden(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	stranger, err := f.graph.Create(task.CreateSpec{Title: "stranger", WorkspaceID: f.ws.ID})
	require.NoError(t, err)

	for name, op := range map[string]func() error{
		"cancel":  func() error { return f.orch.Cancel(context.Background(), stranger.ID, child.ID) },
		"pause":   func() error { return f.orch.Pause(context.Background(), stranger.ID, child.ID) },
		"resume":  func() error { return f.orch.Resume(context.Background(), stranger.ID, child.ID) },
		"message": func() error { return f.orch.SendMessage(context.Background(), stranger.ID, child.ID, "hi") },
	} {
		err := op()
		assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindForbidden), "%s err = %v", name, err)
	}
	// No mutation happened.
	got, err := f.graph.Get(child.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusExecuting, got.Status)

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	require.NoError(t, f.orch.Pause(context.Background(), root.ID, child.ID))
	got, _ := f.graph.Get(child.ID)
	assert.Equal(t, task.StatusPaused, got.Status)

	// Pausing a paused task violates the precondition.
	err := f.orch.Pause(context.Background(), root.ID, child.ID)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindTaskNotRunning), "err = %v", err)

	require.NoError(t, f.orch.Resume(context.Background(), root.ID, child.ID))
	got, _ = f.graph.Get(child.ID)
	assert.Equal(t, task.StatusExecuting, got.Status)

	// Resuming a running task violates the precondition.
	err = f.orch.Resume(context.Background(), root.ID, child.ID)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindTaskNotPaused), "err = %v", err)

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestResumeWithoutExecutor(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)

	// A task that was paused before the process restarted: status exists,
	// session does not.
	orphan, err := f.graph.Create(task.CreateSpec{Title: "orphan", ParentID: root.ID, WorkspaceID: f.ws.ID})
	require.NoError(t, err)
	_, err = f.graph.SetStatus(orphan.ID, task.StatusExecuting)
	require.NoError(t, err)
	_, err = f.graph.SetStatus(orphan.ID, task.StatusPaused)
	require.NoError(t, err)

	err = f.orch.Resume(context.Background(), root.ID, orphan.ID)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindNoExecutor), "err = %v", err)

	// Status is unchanged; resume is not retried automatically.
	got, _ := f.graph.Get(orphan.ID)
	assert.Equal(t, task.StatusPaused, got.Status)
}

func TestSendMessageReachesRunner(t *testing.T) {
	received := make(chan string, 1)
	runner := RunnerFunc(func(ctx context.Context, tk *task.Task, session *Session) error {
		select {
		case text := <-session.Messages():
			received <- text
		case <-ctx.Done():
		}
		<-ctx.Done()
		return ctx.Err()
	})

	f := newFixture(t, runner)
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	require.NoError(t, f.orch.SendMessage(context.Background(), root.ID, child.ID, "status report please"))
	select {
	case text := <-received:
		assert.Equal(t, "status report please", text)
	case <-time.After(time.Second):
		t.Fatal("message never reached the runner")
	}

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestWaitFor(t *testing.T) {
	done := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, tk *task.Task, session *Session) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	f := newFixture(t, runner)
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	// Timeout while the child is still running.
	_, err := f.orch.WaitFor(context.Background(), root.ID, child.ID, 20*time.Millisecond)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindTimeout), "err = %v", err)

	// Caller cancellation abandons the wait.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = f.orch.WaitFor(ctx, root.ID, child.ID, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	// Completion wakes the waiter.
	close(done)
	finished, err := f.orch.WaitFor(context.Background(), root.ID, child.ID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, finished.Status)
	f.orch.Wait()
}

func TestCaptureEvents(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.log.Append(context.Background(),
			eventlog.New(child.ID, eventlog.TypeAssistantMessage, map[string]any{"text": "note"})))
	}

	summaries, err := f.orch.CaptureEvents(context.Background(), root.ID, child.ID, 3)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
	for _, summary := range summaries {
		assert.NotZero(t, summary.Timestamp)
		assert.NotEmpty(t, summary.Summary)
	}

	// A stranger may not read the transcript either.
	stranger, err := f.graph.Create(task.CreateSpec{Title: "stranger", WorkspaceID: f.ws.ID})
	require.NoError(t, err)
	_, err = f.orch.CaptureEvents(context.Background(), stranger.ID, child.ID, 3)
	assert.True(t, runtimeerrors.HasKind(err, runtimeerrors.KindForbidden))

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestCancelDeniesPendingApproval(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	decided := make(chan approval.Decision, 1)
	go func() {
		_, decision, _ := f.gate.Request(context.Background(), child.ID, "run_command", "Run rm", nil)
		decided <- decision
	}()
	deadline := time.Now().Add(time.Second)
	for len(f.gate.Pending()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))

	select {
	case decision := <-decided:
		assert.False(t, decision.Approved, "pending approvals must be denied on cancellation")
	case <-time.After(time.Second):
		t.Fatal("approval was never resolved")
	}
	f.orch.Wait()
}

func TestDeniedShellCommandNeverSpawns(t *testing.T) {
	f := newFixture(t, idleRunner())
	go approval.NewAutoApprover(f.gate, false).Run()
	root := f.newRoot(t)

	marker := filepath.Join(f.ws.RootPath, "spawned.txt")
	result := f.registry.Execute(context.Background(), tools.Call{
		ID:          "call-1",
		Name:        "run_command",
		Arguments:   map[string]any{"command": "touch " + marker},
		TaskID:      root.ID,
		WorkspaceID: f.ws.ID,
	})

	assert.False(t, result.Success)
	assert.Equal(t, runtimeerrors.KindApprovalDenied, result.ErrorKind)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "denied command must never execute")
}

func TestBlockedLifecycleHooks(t *testing.T) {
	f := newFixture(t, idleRunner())
	root := f.newRoot(t)
	child := f.spawnAndAwait(t, root.ID)

	f.orch.OnBlocked(child.ID)
	got, _ := f.graph.Get(child.ID)
	assert.Equal(t, task.StatusBlocked, got.Status)

	f.orch.OnUnblocked(child.ID)
	got, _ = f.graph.Get(child.ID)
	assert.Equal(t, task.StatusExecuting, got.Status)

	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}

func TestRunRootTask(t *testing.T) {
	ran := make(chan struct{}, 1)
	runner := RunnerFunc(func(ctx context.Context, tk *task.Task, session *Session) error {
		ran <- struct{}{}
		return nil
	})
	f := newFixture(t, runner)

	finished, err := f.orch.Run(context.Background(), task.CreateSpec{
		Title:       "root",
		Prompt:      "do things",
		WorkspaceID: f.ws.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, finished.Status)
	assert.Len(t, ran, 1)

	// The transcript shows the lifecycle.
	events, err := f.log.List(context.Background(), finished.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, eventlog.TypeStatusChanged, events[0].Type)
}

func TestFailedRunnerMarksTaskFailed(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, tk *task.Task, session *Session) error {
		return assert.AnError
	})
	f := newFixture(t, runner)

	finished, err := f.orch.Run(context.Background(), task.CreateSpec{Title: "root", WorkspaceID: f.ws.ID})
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, finished.Status)

	events, err := f.log.List(context.Background(), finished.ID)
	require.NoError(t, err)
	var sawFailure bool
	for _, event := range events {
		if event.Type == eventlog.TypeStepFailed {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "failure reason belongs in the transcript")
}

func TestSpawnEphemeralWorkspaceMaterializes(t *testing.T) {
	f := newFixture(t, idleRunner())

	scratch := &workspace.Workspace{
		ID:          "scratch",
		RootPath:    t.TempDir(),
		Permissions: workspace.Permissions{Read: true, Write: true},
		Ephemeral:   true,
	}
	f.workspaces.Put(scratch)

	root, err := f.graph.Create(task.CreateSpec{Title: "root", WorkspaceID: scratch.ID})
	require.NoError(t, err)
	_, err = f.graph.SetStatus(root.ID, task.StatusExecuting)
	require.NoError(t, err)

	child, err := f.orch.Spawn(context.Background(), root.ID, task.CreateSpec{Title: "child"})
	require.NoError(t, err)
	assert.NotEqual(t, scratch.ID, child.WorkspaceID, "child must get a dedicated workspace")

	dedicated, err := f.workspaces.Get(context.Background(), child.WorkspaceID)
	require.NoError(t, err)
	assert.False(t, dedicated.Ephemeral)
	assert.True(t, dedicated.Permissions.Write, "dedicated workspace inherits permissions")

	waitForStatus(t, f.graph, child.ID, task.StatusExecuting)
	require.NoError(t, f.orch.Cancel(context.Background(), root.ID, child.ID))
	f.orch.Wait()
}
