package eventlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestMemoryLogAppendOrder(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := New("task-1", TypeToolCall, map[string]any{"tool": fmt.Sprintf("t%d", i)})
		if err := log.Append(ctx, event); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := log.List(ctx, "task-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("len = %d", len(events))
	}
	for i, event := range events {
		if event.Payload["tool"] != fmt.Sprintf("t%d", i) {
			t.Fatalf("read-back order differs from append order at %d", i)
		}
		if i > 0 && events[i].Seq <= events[i-1].Seq {
			t.Fatal("sequence numbers must grow monotonically")
		}
	}
}

func TestMemoryLogConcurrentAppend(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			taskID := fmt.Sprintf("task-%d", w%2)
			for i := 0; i < 50; i++ {
				if err := log.Append(ctx, New(taskID, TypeMessage, nil)); err != nil {
					t.Errorf("Append: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, taskID := range []string{"task-0", "task-1"} {
		events, err := log.List(ctx, taskID)
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 200 {
			t.Fatalf("%s has %d events, want 200", taskID, len(events))
		}
		for i := 1; i < len(events); i++ {
			if events[i].Seq <= events[i-1].Seq {
				t.Fatal("per-task order must be monotonic under concurrent append")
			}
		}
	}
}

func TestMemoryLogRecent(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		event := New("task-1", TypeMessage, map[string]any{"text": fmt.Sprintf("m%d", i)})
		if err := log.Append(ctx, event); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := log.Recent(ctx, "task-1", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d", len(recent))
	}
	// Last-N window, oldest of the window first.
	for i, want := range []string{"m7", "m8", "m9"} {
		if recent[i].Payload["text"] != want {
			t.Fatalf("recent[%d] = %v, want %s", i, recent[i].Payload["text"], want)
		}
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		event *Event
		want  string
	}{
		{New("t", TypeToolCall, map[string]any{"tool": "file_read"}), "called file_read"},
		{New("t", TypeToolResult, map[string]any{"tool": "file_read"}), "file_read succeeded"},
		{New("t", TypeToolResult, map[string]any{"tool": "file_read", "error": "boom"}), "file_read failed: boom"},
		{New("t", TypeApprovalResolved, map[string]any{"approved": true}), "approved"},
		{New("t", TypeStatusChanged, map[string]any{"from": "created", "to": "executing"}), "created -> executing"},
		{New("t", TypeMessage, map[string]any{"text": "hello"}), "hello"},
	}
	for _, tc := range cases {
		if got := Summarize(tc.event); got.Summary != tc.want {
			t.Errorf("Summarize(%s) = %q, want %q", tc.event.Type, got.Summary, tc.want)
		}
	}
}

func TestSummarizeClipsLongText(t *testing.T) {
	event := New("t", TypeMessage, map[string]any{"text": strings.Repeat("a", 500)})
	summary := Summarize(event)
	if len(summary.Summary) > 120 {
		t.Fatalf("summary length = %d", len(summary.Summary))
	}
	if !strings.HasSuffix(summary.Summary, "...") {
		t.Fatal("clipped summary should end with ellipsis")
	}
}

func TestSummarizeClipsOnRuneBoundary(t *testing.T) {
	event := New("t", TypeMessage, map[string]any{"text": strings.Repeat("日本語テキスト", 40)})
	summary := Summarize(event)
	if len(summary.Summary) > 120 {
		t.Fatalf("summary length = %d", len(summary.Summary))
	}
	if !utf8.ValidString(summary.Summary) {
		t.Fatalf("clipped summary is not valid UTF-8: %q", summary.Summary)
	}
	if !strings.HasSuffix(summary.Summary, "...") {
		t.Fatal("clipped summary should end with ellipsis")
	}
}
