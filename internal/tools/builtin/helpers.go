// Package builtin implements the first-party tools: sandboxed file
// operations, bounded search, and the shell execution guard.
package builtin

import (
	"context"
	"fmt"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/sandbox"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// resolvePath resolves a tool path argument inside the dispatch workspace.
func resolvePath(ctx context.Context, raw string) (string, *workspace.Workspace, error) {
	ws := tools.WorkspaceFromContext(ctx)
	if ws == nil {
		return "", nil, runtimeerrors.New(runtimeerrors.KindIO, "no workspace bound to call")
	}
	resolved, err := sandbox.NewPathSandbox(ws).Resolve(raw)
	if err != nil {
		return "", nil, err
	}
	return resolved, ws, nil
}

// Register adds every builtin tool to the registry.
func Register(registry *tools.Registry, limits config.Limits) error {
	all := []tools.Tool{
		NewFileRead(limits),
		NewFileWrite(),
		NewFileEdit(),
		NewFileDelete(),
		NewListFiles(limits),
		NewGlobSearch(limits),
		NewContentSearch(limits),
		NewRunCommand(limits),
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register builtin: %w", err)
		}
	}
	return nil
}
