package eventlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestSQLiteLog(t *testing.T) *SQLiteLog {
	t.Helper()
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	t.Cleanup(func() {
		if err := log.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return log
}

func TestSQLiteLogRoundTrip(t *testing.T) {
	log := newTestSQLiteLog(t)
	ctx := context.Background()

	event := New("task-1", TypeToolCall, map[string]any{"tool": "file_read", "input": map[string]any{"path": "a.txt"}})
	if err := log.Append(ctx, event); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if event.Seq == 0 {
		t.Fatal("Append should assign a sequence")
	}

	events, err := log.List(ctx, "task-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d", len(events))
	}
	got := events[0]
	if got.ID != event.ID || got.Type != TypeToolCall {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Payload["tool"] != "file_read" {
		t.Fatalf("payload = %+v", got.Payload)
	}
}

func TestSQLiteLogOrderAndRecent(t *testing.T) {
	log := newTestSQLiteLog(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := log.Append(ctx, New("task-1", TypeMessage, map[string]any{"text": fmt.Sprintf("m%d", i)})); err != nil {
			t.Fatal(err)
		}
	}
	// Interleave another task; it must not leak into task-1 reads.
	if err := log.Append(ctx, New("task-2", TypeMessage, map[string]any{"text": "other"})); err != nil {
		t.Fatal(err)
	}

	events, err := log.List(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 10 {
		t.Fatalf("len = %d", len(events))
	}
	for i, event := range events {
		if event.Payload["text"] != fmt.Sprintf("m%d", i) {
			t.Fatalf("order mismatch at %d: %v", i, event.Payload["text"])
		}
	}

	recent, err := log.Recent(ctx, "task-1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 4 {
		t.Fatalf("recent len = %d", len(recent))
	}
	for i, want := range []string{"m6", "m7", "m8", "m9"} {
		if recent[i].Payload["text"] != want {
			t.Fatalf("recent[%d] = %v, want %s", i, recent[i].Payload["text"], want)
		}
	}
}

func TestSQLiteLogEmptyTask(t *testing.T) {
	log := newTestSQLiteLog(t)
	events, err := log.List(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("len = %d, want 0", len(events))
	}
}
