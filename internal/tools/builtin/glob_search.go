package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/globber"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type globSearch struct {
	maxResults int
}

func NewGlobSearch(limits config.Limits) tools.Tool {
	return &globSearch{maxResults: limits.MaxSearchResults}
}

func (t *globSearch) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	pattern := call.String("pattern")
	if pattern == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'pattern'"), nil
	}
	base := call.String("path")
	if base == "" {
		base = "."
	}
	maxResults := call.Int("max_results", t.maxResults)
	if maxResults > t.maxResults {
		maxResults = t.maxResults
	}

	resolved, _, err := resolvePath(ctx, base)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	scan, err := globber.Scan(resolved, pattern, maxResults)
	if err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "glob %q", pattern)), nil
	}

	var out strings.Builder
	if len(scan.Matches) == 0 {
		fmt.Fprintf(&out, "No files match %q", pattern)
	} else {
		for _, match := range scan.Matches {
			out.WriteString(match.Path)
			out.WriteString("\n")
		}
		if scan.Truncated {
			out.WriteString("... [results truncated]\n")
		}
	}

	return tools.Ok(call, out.String(), map[string]any{
		"pattern":       pattern,
		"matches":       len(scan.Matches),
		"files_scanned": scan.FilesScanned,
		"truncated":     scan.Truncated,
	}), nil
}

func (t *globSearch) Definition() tools.Definition {
	return tools.Definition{
		Name:        "glob_search",
		Description: "Find workspace files by glob pattern (*, **, ?, {a,b}), newest first.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"pattern":     {Type: "string", Description: "Glob pattern matched against workspace-relative paths"},
				"path":        {Type: "string", Description: "Directory to scan; defaults to the workspace root"},
				"max_results": {Type: "integer", Description: "Result cap; clamped to the configured limit"},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *globSearch) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "glob_search",
		Category:   "search",
		Tags:       []string{"filesystem", "read", "search"},
		Permission: tools.PermissionRead,
	}
}
