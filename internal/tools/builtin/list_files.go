package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/sandbox"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type listFiles struct {
	maxEntries int
}

func NewListFiles(limits config.Limits) tools.Tool {
	return &listFiles{maxEntries: limits.MaxDirEntries}
}

func (t *listFiles) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	path := call.String("path")
	if path == "" {
		path = "."
	}

	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	listing, err := sandbox.ListDirCapped(resolved, t.maxEntries)
	if err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "list %s", path)), nil
	}

	var out strings.Builder
	for _, entry := range listing.Entries {
		if entry.IsDir {
			fmt.Fprintf(&out, "%s/\n", entry.Name)
		} else {
			fmt.Fprintf(&out, "%s (%d bytes)\n", entry.Name, entry.Size)
		}
	}
	if listing.Truncated {
		out.WriteString(sandbox.TruncationNote(len(listing.Entries), listing.Total))
	}

	return tools.Ok(call, out.String(), map[string]any{
		"path":      path,
		"entries":   len(listing.Entries),
		"total":     listing.Total,
		"truncated": listing.Truncated,
	}), nil
}

func (t *listFiles) Definition() tools.Definition {
	return tools.Definition{
		Name:        "list_files",
		Description: "List a workspace directory, directories first, capped at the entry limit.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "Workspace-relative directory path; defaults to the workspace root"},
			},
		},
	}
}

func (t *listFiles) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "list_files",
		Category:   "file_operations",
		Tags:       []string{"filesystem", "read"},
		Permission: tools.PermissionRead,
	}
}
