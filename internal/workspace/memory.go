package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

// MemoryManager is an in-process Manager keyed by workspace id. It is the
// default for CLI runs and for tests; a server deployment swaps in a
// store-backed implementation behind the same port.
type MemoryManager struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{workspaces: make(map[string]*Workspace)}
}

// Put registers or replaces a workspace.
func (m *MemoryManager) Put(ws *Workspace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now
	m.workspaces[ws.ID] = ws
}

// SetPermissions replaces the permission set of an existing workspace. The
// change is visible to the next Get.
func (m *MemoryManager) SetPermissions(workspaceID string, perms Permissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[workspaceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, workspaceID)
	}
	ws.Permissions = perms
	ws.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryManager) Get(_ context.Context, workspaceID string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[workspaceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workspaceID)
	}
	// Copy so callers never observe later mutations mid-dispatch.
	copied := *ws
	copied.Permissions.AllowedPaths = append([]string(nil), ws.Permissions.AllowedPaths...)
	return &copied, nil
}

func (m *MemoryManager) Materialize(ctx context.Context, originID string, taskID string) (*Workspace, error) {
	origin, err := m.Get(ctx, originID)
	if err != nil {
		return nil, err
	}
	if !origin.Ephemeral {
		return origin, nil
	}

	root := filepath.Join(origin.RootPath, "tasks", taskID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("materialize workspace root: %w", err)
	}

	ws := &Workspace{
		ID:          id.NewWorkspaceID(),
		RootPath:    root,
		Permissions: origin.Permissions,
		Ephemeral:   false,
	}
	m.Put(ws)
	return ws, nil
}
