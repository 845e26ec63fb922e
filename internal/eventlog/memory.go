package eventlog

import (
	"context"
	"sync"
)

// MemoryLog keeps per-task event slices in process. Append order is the
// slice order; no update-in-place ever happens.
type MemoryLog struct {
	mu     sync.RWMutex
	byTask map[string][]*Event
	seq    int64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byTask: make(map[string][]*Event)}
}

func (l *MemoryLog) Append(_ context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.byTask[event.TaskID] = append(l.byTask[event.TaskID], event)
	return nil
}

func (l *MemoryLog) List(_ context.Context, taskID string) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.byTask[taskID]
	out := make([]*Event, len(events))
	copy(out, events)
	return out, nil
}

func (l *MemoryLog) Recent(ctx context.Context, taskID string, limit int) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.byTask[taskID]
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	window := events[len(events)-limit:]
	out := make([]*Event, len(window))
	copy(out, window)
	return out, nil
}

var _ Log = (*MemoryLog)(nil)
