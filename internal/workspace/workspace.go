// Package workspace defines the workspace model and the manager port the
// runtime reads capability state through.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Permissions is the capability set bounding what tools may do inside a
// workspace. The zero value grants nothing.
type Permissions struct {
	Read                   bool     `json:"read"`
	Write                  bool     `json:"write"`
	Delete                 bool     `json:"delete"`
	Network                bool     `json:"network"`
	Shell                  bool     `json:"shell"`
	UnrestrictedFileAccess bool     `json:"unrestricted_file_access"`
	AllowedPaths           []string `json:"allowed_paths,omitempty"`
}

// Workspace binds a filesystem root to a permission set.
type Workspace struct {
	ID          string      `json:"id"`
	RootPath    string      `json:"root_path"`
	Permissions Permissions `json:"permissions"`

	// Ephemeral marks shared scratch workspaces. Tasks created from an
	// ephemeral workspace get a dedicated workspace materialized for them.
	Ephemeral bool `json:"ephemeral"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowsExternal reports whether abs is covered by the allow list, by exact
// match or prefix match on a path boundary. Substring containment is not
// enough: /tmp/allowed must not cover /tmp/allowed-sibling.
func (w *Workspace) AllowsExternal(abs string) bool {
	cleaned := filepath.Clean(abs)
	for _, allowed := range w.Permissions.AllowedPaths {
		allowedClean := filepath.Clean(strings.TrimSpace(allowed))
		if allowedClean == "" || allowedClean == "." {
			continue
		}
		if cleaned == allowedClean {
			return true
		}
		if strings.HasPrefix(cleaned, allowedClean+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Manager is the port through which the runtime reads workspace state.
//
// Get must return current permission state on every call: the runtime never
// caches a workspace across tool dispatches, so a permission toggle is
// visible to the very next call.
type Manager interface {
	Get(ctx context.Context, workspaceID string) (*Workspace, error)

	// Materialize creates a dedicated workspace for a task whose origin
	// workspace is ephemeral, inheriting the origin's permission set.
	Materialize(ctx context.Context, originID string, taskID string) (*Workspace, error)
}

// ErrNotFound is returned by managers for unknown workspace ids.
var ErrNotFound = fmt.Errorf("workspace not found")
