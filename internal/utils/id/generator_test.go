package id

import (
	"strings"
	"testing"
)

func TestPrefixes(t *testing.T) {
	cases := map[string]func() string{
		"task":      NewTaskID,
		"event":     NewEventID,
		"approval":  NewApprovalID,
		"workspace": NewWorkspaceID,
		"call":      NewCallID,
	}
	for prefix, generate := range cases {
		got := generate()
		if !strings.HasPrefix(got, prefix+"-") {
			t.Errorf("%s id = %q, want %q prefix", prefix, got, prefix+"-")
		}
		if Prefix(got) != prefix {
			t.Errorf("Prefix(%q) = %q, want %q", got, Prefix(got), prefix)
		}
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTaskID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
