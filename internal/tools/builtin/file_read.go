package builtin

import (
	"context"
	"fmt"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/sandbox"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type fileRead struct {
	maxBytes int64
}

func NewFileRead(limits config.Limits) tools.Tool {
	return &fileRead{maxBytes: limits.MaxReadBytes}
}

func (t *fileRead) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	path := call.String("path")
	if path == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'path'"), nil
	}

	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	read, err := sandbox.ReadFileCapped(resolved, t.maxBytes)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	return tools.Ok(call, read.Content, map[string]any{
		"path":       path,
		"bytes_read": read.BytesRead,
		"total_size": read.TotalSize,
		"truncated":  read.Truncated,
	}), nil
}

func (t *fileRead) Definition() tools.Definition {
	return tools.Definition{
		Name:        "file_read",
		Description: fmt.Sprintf("Read a file from the workspace. Reads are capped at %d bytes; a capped read is marked truncated.", t.maxBytes),
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "Workspace-relative file path"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *fileRead) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "file_read",
		Category:   "file_operations",
		Tags:       []string{"filesystem", "read"},
		Permission: tools.PermissionRead,
	}
}
