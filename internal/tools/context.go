package tools

import (
	"context"

	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

type workspaceCtxKey struct{}

// WithWorkspace binds the live workspace for one dispatch. The registry
// sets this immediately before executing the tool body, so the permission
// state a tool observes is never staler than the dispatch itself.
func WithWorkspace(ctx context.Context, ws *workspace.Workspace) context.Context {
	return context.WithValue(ctx, workspaceCtxKey{}, ws)
}

// WorkspaceFromContext retrieves the dispatch workspace, or nil.
func WorkspaceFromContext(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(workspaceCtxKey{}).(*workspace.Workspace)
	return ws
}
