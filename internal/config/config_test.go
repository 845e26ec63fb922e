package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ApprovalTimeout != 5*time.Minute {
		t.Errorf("ApprovalTimeout = %s, want 5m", cfg.ApprovalTimeout)
	}
	if cfg.MaxChildWorkers != 4 || cfg.MaxTaskDepth != 5 {
		t.Errorf("worker/depth defaults = %d/%d", cfg.MaxChildWorkers, cfg.MaxTaskDepth)
	}
	if cfg.Limits.MaxReadBytes != 512*1024 {
		t.Errorf("MaxReadBytes = %d", cfg.Limits.MaxReadBytes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cowork.yaml")
	content := `
log_level: debug
approval_timeout: 30s
max_task_depth: 2
limits:
  max_read_bytes: 1024
  max_dir_entries: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ApprovalTimeout != 30*time.Second {
		t.Errorf("ApprovalTimeout = %s", cfg.ApprovalTimeout)
	}
	if cfg.MaxTaskDepth != 2 {
		t.Errorf("MaxTaskDepth = %d", cfg.MaxTaskDepth)
	}
	if cfg.Limits.MaxReadBytes != 1024 || cfg.Limits.MaxDirEntries != 10 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	// Unset fields keep their defaults.
	if cfg.Limits.MaxSearchResults != 200 {
		t.Errorf("MaxSearchResults = %d, want default", cfg.Limits.MaxSearchResults)
	}
}

func TestNormalizedRejectsNonPositive(t *testing.T) {
	cfg := Config{Limits: Limits{MaxReadBytes: -1}}
	got := cfg.normalized()
	if got.Limits.MaxReadBytes != Default().Limits.MaxReadBytes {
		t.Errorf("negative cap should reset to default, got %d", got.Limits.MaxReadBytes)
	}
	if got.ApprovalTimeout != Default().ApprovalTimeout {
		t.Errorf("zero timeout should reset to default")
	}
}
