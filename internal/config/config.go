// Package config loads runtime configuration from file, environment, and
// defaults, in that order of increasing precedence for env overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the runtime reads at construction time.
type Config struct {
	// WorkspaceRoot is the default filesystem root for new workspaces.
	WorkspaceRoot string `mapstructure:"workspace_root"`

	// EventLogPath is the sqlite database file for the durable event log.
	// Empty selects the in-memory log.
	EventLogPath string `mapstructure:"event_log_path"`

	LogLevel string `mapstructure:"log_level"`

	// ApprovalTimeout bounds how long a gated tool call waits for an
	// operator before the request is treated as denied.
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`

	// MaxChildWorkers bounds concurrently executing spawned children.
	MaxChildWorkers int `mapstructure:"max_child_workers"`

	// MaxTaskDepth bounds how deep the spawn tree may grow.
	MaxTaskDepth int `mapstructure:"max_task_depth"`

	Limits Limits `mapstructure:"limits"`
}

// Limits collects the I/O ceilings shared by the file tools.
type Limits struct {
	MaxReadBytes      int64         `mapstructure:"max_read_bytes"`
	MaxDirEntries     int           `mapstructure:"max_dir_entries"`
	MaxSearchFiles    int           `mapstructure:"max_search_files"`
	MaxSearchResults  int           `mapstructure:"max_search_results"`
	MaxOutputBytes    int           `mapstructure:"max_output_bytes"`
	MaxShellDuration  time.Duration `mapstructure:"max_shell_duration"`
	DefaultShellLimit time.Duration `mapstructure:"default_shell_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WorkspaceRoot:   "",
		EventLogPath:    "",
		LogLevel:        "info",
		ApprovalTimeout: 5 * time.Minute,
		MaxChildWorkers: 4,
		MaxTaskDepth:    5,
		Limits: Limits{
			MaxReadBytes:      512 * 1024,
			MaxDirEntries:     500,
			MaxSearchFiles:    2000,
			MaxSearchResults:  200,
			MaxOutputBytes:    64 * 1024,
			MaxShellDuration:  10 * time.Minute,
			DefaultShellLimit: 2 * time.Minute,
		},
	}
}

// Load reads configuration from the given file path (optional) and COWORK_*
// environment variables, layered over Default.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.normalized(), nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("workspace_root", def.WorkspaceRoot)
	v.SetDefault("event_log_path", def.EventLogPath)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("approval_timeout", def.ApprovalTimeout)
	v.SetDefault("max_child_workers", def.MaxChildWorkers)
	v.SetDefault("max_task_depth", def.MaxTaskDepth)
	v.SetDefault("limits.max_read_bytes", def.Limits.MaxReadBytes)
	v.SetDefault("limits.max_dir_entries", def.Limits.MaxDirEntries)
	v.SetDefault("limits.max_search_files", def.Limits.MaxSearchFiles)
	v.SetDefault("limits.max_search_results", def.Limits.MaxSearchResults)
	v.SetDefault("limits.max_output_bytes", def.Limits.MaxOutputBytes)
	v.SetDefault("limits.max_shell_duration", def.Limits.MaxShellDuration)
	v.SetDefault("limits.default_shell_limit", def.Limits.DefaultShellLimit)
}

func (c Config) normalized() Config {
	def := Default()
	if c.ApprovalTimeout <= 0 {
		c.ApprovalTimeout = def.ApprovalTimeout
	}
	if c.MaxChildWorkers <= 0 {
		c.MaxChildWorkers = def.MaxChildWorkers
	}
	if c.MaxTaskDepth <= 0 {
		c.MaxTaskDepth = def.MaxTaskDepth
	}
	if c.Limits.MaxReadBytes <= 0 {
		c.Limits.MaxReadBytes = def.Limits.MaxReadBytes
	}
	if c.Limits.MaxDirEntries <= 0 {
		c.Limits.MaxDirEntries = def.Limits.MaxDirEntries
	}
	if c.Limits.MaxSearchFiles <= 0 {
		c.Limits.MaxSearchFiles = def.Limits.MaxSearchFiles
	}
	if c.Limits.MaxSearchResults <= 0 {
		c.Limits.MaxSearchResults = def.Limits.MaxSearchResults
	}
	if c.Limits.MaxOutputBytes <= 0 {
		c.Limits.MaxOutputBytes = def.Limits.MaxOutputBytes
	}
	if c.Limits.MaxShellDuration <= 0 {
		c.Limits.MaxShellDuration = def.Limits.MaxShellDuration
	}
	if c.Limits.DefaultShellLimit <= 0 {
		c.Limits.DefaultShellLimit = def.Limits.DefaultShellLimit
	}
	return c
}
