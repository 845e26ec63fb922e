package builtin

import (
	"context"
	"fmt"
	"os"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type fileDelete struct{}

func NewFileDelete() tools.Tool {
	return &fileDelete{}
}

func (t *fileDelete) ApprovalFor(ctx context.Context, call tools.Call) (*tools.ApprovalPlan, bool) {
	path := call.String("path")
	plan := &tools.ApprovalPlan{
		Kind:    "file_delete",
		Summary: fmt.Sprintf("Delete %s", path),
		Details: map[string]any{"path": path},
	}
	if resolved, _, err := resolvePath(ctx, path); err == nil {
		if info, statErr := os.Stat(resolved); statErr == nil {
			plan.Details["size"] = info.Size()
			plan.Details["is_dir"] = info.IsDir()
		}
	}
	return plan, true
}

func (t *fileDelete) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	path := call.String("path")
	if path == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'path'"), nil
	}

	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "stat %s", path)), nil
	}
	if info.IsDir() {
		return tools.Failf(call, runtimeerrors.KindIO, "%s is a directory; refusing to delete", path), nil
	}

	if err := os.Remove(resolved); err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "delete %s", path)), nil
	}

	return tools.Ok(call, fmt.Sprintf("Deleted %s", path), map[string]any{"path": path}), nil
}

func (t *fileDelete) Definition() tools.Definition {
	return tools.Definition{
		Name:        "file_delete",
		Description: "Delete a single file inside the workspace. Directories are refused.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "Workspace-relative file path"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *fileDelete) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:             "file_delete",
		Category:         "file_operations",
		Tags:             []string{"filesystem", "delete"},
		Permission:       tools.PermissionDelete,
		RequiresApproval: true,
	}
}
