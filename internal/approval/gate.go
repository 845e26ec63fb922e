// Package approval implements the human-approval gate that suspends a tool
// call until an operator resolves it.
package approval

import (
	"context"
	"sync"
	"time"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/shared/logging"
	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

// Request describes one pending approval.
type Request struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	Kind      string         `json:"kind"`
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Decision is the terminal resolution of a request.
type Decision struct {
	Approved bool
	// Reason is operator- or runtime-supplied context ("denied by user",
	// "task cancelled", "approval timeout").
	Reason string
}

// handle is the single-resolution suspension point for one request.
type handle struct {
	request *Request
	done    chan Decision
	once    sync.Once
}

func (h *handle) resolve(d Decision) bool {
	resolved := false
	h.once.Do(func() {
		h.done <- d
		close(h.done)
		resolved = true
	})
	return resolved
}

// Gate tracks pending requests and wakes suspended callers on resolution.
type Gate struct {
	mu       sync.Mutex
	pending  map[string]*handle
	watchers []chan *Request
	timeout  time.Duration
	logger   logging.Logger
}

// NewGate constructs a gate. timeout bounds how long Request waits before
// the call is treated as denied; zero disables the deadline.
func NewGate(timeout time.Duration, logger logging.Logger) *Gate {
	return &Gate{
		pending: make(map[string]*handle),
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
}

// Watch returns a channel receiving every new request. Used by operator
// frontends (the terminal approver, a UI bridge).
func (g *Gate) Watch() <-chan *Request {
	ch := make(chan *Request, 16)
	g.mu.Lock()
	g.watchers = append(g.watchers, ch)
	g.mu.Unlock()
	return ch
}

// Pending lists unresolved requests, oldest first.
func (g *Gate) Pending() []*Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Request, 0, len(g.pending))
	for _, h := range g.pending {
		out = append(out, h.request)
	}
	sortRequests(out)
	return out
}

func sortRequests(requests []*Request) {
	for i := 1; i < len(requests); i++ {
		for j := i; j > 0 && requests[j].CreatedAt.Before(requests[j-1].CreatedAt); j-- {
			requests[j], requests[j-1] = requests[j-1], requests[j]
		}
	}
}

// Request registers a pending approval and suspends until it is resolved,
// the gate timeout fires (denied), or ctx is cancelled (denied). The
// decision is returned alongside the request id for event logging.
func (g *Gate) Request(ctx context.Context, taskID, kind, summary string, details map[string]any) (string, Decision, error) {
	req := &Request{
		ID:        id.NewApprovalID(),
		TaskID:    taskID,
		Kind:      kind,
		Summary:   summary,
		Details:   details,
		CreatedAt: time.Now(),
	}
	h := &handle{request: req, done: make(chan Decision, 1)}

	g.mu.Lock()
	g.pending[req.ID] = h
	watchers := append([]chan *Request(nil), g.watchers...)
	g.mu.Unlock()

	g.logger.Info("approval requested: id=%s task=%s kind=%s", req.ID, taskID, kind)
	for _, w := range watchers {
		select {
		case w <- req:
		default: // a stalled watcher never blocks the tool call
		}
	}

	var deadline <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case decision := <-h.done:
		g.remove(req.ID)
		return req.ID, decision, nil
	case <-deadline:
		g.resolveInternal(req.ID, Decision{Approved: false, Reason: "approval timeout"})
		g.remove(req.ID)
		return req.ID, Decision{Approved: false, Reason: "approval timeout"}, nil
	case <-ctx.Done():
		g.resolveInternal(req.ID, Decision{Approved: false, Reason: "task cancelled"})
		g.remove(req.ID)
		return req.ID, Decision{Approved: false, Reason: "task cancelled"}, ctx.Err()
	}
}

// Resolve records the terminal decision for a request. A second resolution
// attempt fails; the first decision never flips.
func (g *Gate) Resolve(approvalID string, approved bool, reason string) error {
	g.mu.Lock()
	h, ok := g.pending[approvalID]
	g.mu.Unlock()
	if !ok {
		return runtimeerrors.New(runtimeerrors.KindIO, "approval %s not pending", approvalID)
	}
	if !h.resolve(Decision{Approved: approved, Reason: reason}) {
		return runtimeerrors.New(runtimeerrors.KindIO, "approval %s already resolved", approvalID)
	}
	return nil
}

// DenyAllForTask resolves every pending request owned by taskID as denied.
// Called on task cancellation so no tool body completes afterwards.
func (g *Gate) DenyAllForTask(taskID string) int {
	g.mu.Lock()
	var ids []string
	for reqID, h := range g.pending {
		if h.request.TaskID == taskID {
			ids = append(ids, reqID)
		}
	}
	g.mu.Unlock()

	denied := 0
	for _, reqID := range ids {
		if g.resolveInternal(reqID, Decision{Approved: false, Reason: "task cancelled"}) {
			denied++
		}
	}
	return denied
}

func (g *Gate) resolveInternal(approvalID string, d Decision) bool {
	g.mu.Lock()
	h, ok := g.pending[approvalID]
	g.mu.Unlock()
	if !ok {
		return false
	}
	return h.resolve(d)
}

func (g *Gate) remove(approvalID string) {
	g.mu.Lock()
	delete(g.pending, approvalID)
	g.mu.Unlock()
}
