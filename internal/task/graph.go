package task

import (
	"sync"
	"time"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

// Graph is the arena of tasks indexed by id with explicit parent-id back
// references. All mutation goes through the graph so the depth and
// transition invariants hold under concurrent sibling execution.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	// done carries a channel per task, closed when the task reaches a
	// terminal status; WaitFor blocks on it.
	done map[string]chan struct{}
}

func NewGraph() *Graph {
	return &Graph{
		tasks: make(map[string]*Task),
		done:  make(map[string]chan struct{}),
	}
}

// CreateSpec holds the caller-supplied fields of a new task.
type CreateSpec struct {
	Title       string
	Prompt      string
	WorkspaceID string
	ParentID    string
	AgentType   string
}

// Create adds a task to the arena. A non-empty ParentID must name an
// existing task; the child's depth is parent.Depth+1.
func (g *Graph) Create(spec CreateSpec) (*Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	depth := 0
	if spec.ParentID != "" {
		parent, ok := g.tasks[spec.ParentID]
		if !ok {
			return nil, runtimeerrors.New(runtimeerrors.KindTaskNotFound, "parent task %s", spec.ParentID)
		}
		depth = parent.Depth + 1
	}

	now := time.Now()
	t := &Task{
		ID:          id.NewTaskID(),
		Title:       spec.Title,
		Prompt:      spec.Prompt,
		WorkspaceID: spec.WorkspaceID,
		Status:      StatusCreated,
		ParentID:    spec.ParentID,
		Depth:       depth,
		AgentType:   spec.AgentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g.tasks[t.ID] = t
	g.done[t.ID] = make(chan struct{})
	return t.clone(), nil
}

// Get returns a copy of the task, or TASK_NOT_FOUND.
func (g *Graph) Get(taskID string) (*Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return nil, runtimeerrors.New(runtimeerrors.KindTaskNotFound, "task %s", taskID)
	}
	return t.clone(), nil
}

// SetStatus applies a lifecycle transition, enforcing the state machine.
// The error kind names the violated precondition so control calls can
// surface it unchanged.
func (g *Graph) SetStatus(taskID string, to Status) (*Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return nil, runtimeerrors.New(runtimeerrors.KindTaskNotFound, "task %s", taskID)
	}
	if !canTransition(t.Status, to) {
		return nil, transitionError(t.Status, to)
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	if to.IsTerminal() {
		if done, ok := g.done[taskID]; ok {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}
	return t.clone(), nil
}

func transitionError(from, to Status) error {
	switch {
	case to == StatusCancelled && from.IsTerminal():
		return runtimeerrors.New(runtimeerrors.KindTaskAlreadyFinished, "task already %s", from)
	case to == StatusPaused:
		return runtimeerrors.New(runtimeerrors.KindTaskNotRunning, "cannot pause task in status %s", from)
	case to == StatusExecuting && from != StatusPaused:
		return runtimeerrors.New(runtimeerrors.KindTaskNotPaused, "cannot resume task in status %s", from)
	default:
		return runtimeerrors.New(runtimeerrors.KindTaskNotRunning, "illegal transition %s -> %s", from, to)
	}
}

// BindWorkspace repoints a task at a different workspace. Used when a task
// created against a shared ephemeral workspace gets its own materialized one
// at execution start.
func (g *Graph) BindWorkspace(taskID, workspaceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return runtimeerrors.New(runtimeerrors.KindTaskNotFound, "task %s", taskID)
	}
	t.WorkspaceID = workspaceID
	t.UpdatedAt = time.Now()
	return nil
}

// Done returns the channel closed when the task reaches a terminal state.
func (g *Graph) Done(taskID string) (<-chan struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	done, ok := g.done[taskID]
	if !ok {
		return nil, runtimeerrors.New(runtimeerrors.KindTaskNotFound, "task %s", taskID)
	}
	return done, nil
}

// Ancestors returns the ancestor chain of taskID, nearest first.
func (g *Graph) Ancestors(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var chain []string
	current, ok := g.tasks[taskID]
	for ok && current.ParentID != "" {
		chain = append(chain, current.ParentID)
		current, ok = g.tasks[current.ParentID]
	}
	return chain
}

// IsAncestor reports whether callerID appears in targetID's ancestor chain.
// A task is not its own ancestor.
func (g *Graph) IsAncestor(callerID, targetID string) bool {
	if callerID == "" || targetID == "" || callerID == targetID {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	current, ok := g.tasks[targetID]
	for ok && current.ParentID != "" {
		if current.ParentID == callerID {
			return true
		}
		current, ok = g.tasks[current.ParentID]
	}
	return false
}

// Children returns direct children of taskID, creation order not guaranteed.
func (g *Graph) Children(taskID string) []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var children []*Task
	for _, t := range g.tasks {
		if t.ParentID == taskID {
			children = append(children, t.clone())
		}
	}
	return children
}

// List returns every task in the arena.
func (g *Graph) List() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t.clone())
	}
	return out
}

func (t *Task) clone() *Task {
	copied := *t
	return &copied
}
