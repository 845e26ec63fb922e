package orchestrator

import (
	"context"
	"sync"
)

// Session is the live in-memory execution handle for one task. It implements
// the executor contract the graph's control operations drive: cancellation
// through context, pausing through a gate the runner checks between steps,
// and message delivery through a bounded mailbox.
//
// Sessions are ephemeral. They exist only while the runner goroutine is
// alive; a process restart leaves nothing to resume.
type Session struct {
	taskID string
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// unpaused is closed while the session may make progress and replaced
	// with an open channel on pause.
	unpaused chan struct{}

	mailbox chan string
}

func newSession(parent context.Context, taskID string) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		taskID:   taskID,
		ctx:      ctx,
		cancel:   cancel,
		unpaused: make(chan struct{}),
		mailbox:  make(chan string, 16),
	}
	close(s.unpaused)
	return s
}

// Context returns the session's execution context; it is cancelled when the
// task is cancelled.
func (s *Session) Context() context.Context { return s.ctx }

// Cancel stops the session. In-flight tool calls observe the cancellation
// through the session context.
func (s *Session) Cancel() { s.cancel() }

// Pause closes the progress gate. The runner stalls at its next Checkpoint.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.unpaused:
		s.unpaused = make(chan struct{})
	default: // already paused
	}
}

// Resume reopens the progress gate.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.unpaused:
	default:
		close(s.unpaused)
	}
}

// Deliver injects an asynchronous message. A full mailbox drops the message
// rather than blocking the sender.
func (s *Session) Deliver(text string) {
	select {
	case s.mailbox <- text:
	default:
	}
}

// Messages exposes delivered messages to the runner.
func (s *Session) Messages() <-chan string { return s.mailbox }

// Checkpoint blocks while the session is paused and returns the context
// error once the session is cancelled. Runners call it between steps so
// pause and cancel take effect at step boundaries.
func (s *Session) Checkpoint(ctx context.Context) error {
	for {
		s.mu.Lock()
		gate := s.unpaused
		s.mu.Unlock()

		select {
		case <-gate:
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
