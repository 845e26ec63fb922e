package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type fileWrite struct{}

func NewFileWrite() tools.Tool {
	return &fileWrite{}
}

func (t *fileWrite) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	path := call.String("path")
	if path == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'path'"), nil
	}
	content, ok := call.Arguments["content"].(string)
	if !ok {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'content'"), nil
	}

	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "create directories")), nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "write %s", path)), nil
	}

	lines := strings.Count(content, "\n") + 1
	return tools.Ok(call, fmt.Sprintf("Wrote %s (%d bytes, %d lines)", path, len(content), lines), map[string]any{
		"path":          path,
		"bytes_written": len(content),
		"lines_total":   lines,
	}), nil
}

func (t *fileWrite) Definition() tools.Definition {
	return tools.Definition{
		Name:        "file_write",
		Description: "Write content to a workspace file, creating parent directories as needed. Overwrites existing content.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"path":    {Type: "string", Description: "Workspace-relative file path"},
				"content": {Type: "string", Description: "Full new file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *fileWrite) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "file_write",
		Category:   "file_operations",
		Tags:       []string{"filesystem", "write"},
		Permission: tools.PermissionWrite,
	}
}
