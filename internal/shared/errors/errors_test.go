package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindForbidden, "task %s may not act on %s", "a", "b")
	if KindOf(err) != KindForbidden {
		t.Fatalf("expected FORBIDDEN, got %s", KindOf(err))
	}
	if KindOf(fmt.Errorf("plain failure")) != KindIO {
		t.Fatal("plain errors should classify as IO")
	}
	if KindOf(nil) != "" {
		t.Fatal("nil error should have no kind")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindPathOutsideWorkspace, "escape attempt")
	outer := fmt.Errorf("tool failed: %w", inner)
	if !HasKind(outer, KindPathOutsideWorkspace) {
		t.Fatal("kind should survive fmt.Errorf wrapping")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(KindIO, cause, "write %s", "out.txt")
	if !stderrors.Is(err, cause) {
		t.Fatal("Unwrap should expose the cause")
	}
	want := "IO: write out.txt: disk full"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestIsMatchesOnKind(t *testing.T) {
	a := New(KindTimeout, "wait elapsed")
	b := New(KindTimeout, "other message")
	if !stderrors.Is(a, b) {
		t.Fatal("errors with the same kind should match via errors.Is")
	}
	c := New(KindForbidden, "nope")
	if stderrors.Is(a, c) {
		t.Fatal("different kinds must not match")
	}
}
