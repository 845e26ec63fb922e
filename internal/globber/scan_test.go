package globber

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScanMatchesAndSorts(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}
	write("old.go", time.Hour)
	write("new.go", 0)
	write("sub/mid.go", 30*time.Minute)
	write("sub/skip.txt", 0)

	result, err := Scan(dir, "**/*.go", 10)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(result.Matches))
	}
	want := []string{"new.go", "sub/mid.go", "old.go"}
	for i, match := range result.Matches {
		if match.Path != want[i] {
			t.Errorf("matches[%d] = %q, want %q (newest first)", i, match.Path, want[i])
		}
	}
	if result.Truncated {
		t.Fatal("small scan should not truncate")
	}
}

func TestScanCapsResults(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		name := filepath.Join(dir, fmt.Sprintf("f%02d.txt", i))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := Scan(dir, "*.txt", 10)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Matches) != 10 {
		t.Fatalf("matches = %d, want 10", len(result.Matches))
	}
	if !result.Truncated {
		t.Fatal("exceeding maxResults must set the truncated flag")
	}
}

func TestScanPrunesSkipList(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, "node_modules", "pkg")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hidden, "index.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(dir, "**/*.js", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Path != "app.js" {
		t.Fatalf("matches = %+v, want only app.js", result.Matches)
	}
}

func TestCeilingsClamped(t *testing.T) {
	small := ceilingsFor(1)
	if small.files != minFilesScanned || small.dirs != minDirsScanned || small.depth != minDepth {
		t.Fatalf("tiny request should clamp to floors: %+v", small)
	}
	huge := ceilingsFor(1_000_000)
	if huge.files != maxFilesScanned || huge.dirs != maxDirsScanned || huge.depth != maxDepth {
		t.Fatalf("huge request should clamp to ceilings: %+v", huge)
	}
}
