package builtin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/sandbox"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type contentSearch struct {
	maxFiles   int
	maxResults int
}

func NewContentSearch(limits config.Limits) tools.Tool {
	return &contentSearch{
		maxFiles:   limits.MaxSearchFiles,
		maxResults: limits.MaxSearchResults,
	}
}

func (t *contentSearch) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	query := call.String("query")
	if query == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'query'"), nil
	}
	base := call.String("path")
	if base == "" {
		base = "."
	}

	resolved, _, err := resolvePath(ctx, base)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	search, err := sandbox.SearchContentCapped(resolved, query, sandbox.SearchLimits{
		MaxFiles:   t.maxFiles,
		MaxResults: call.Int("max_results", t.maxResults),
	})
	if err != nil {
		return tools.Fail(call, err), nil
	}

	var out strings.Builder
	if len(search.Matches) == 0 {
		fmt.Fprintf(&out, "No matches for %q", query)
	} else {
		for _, match := range search.Matches {
			rel, relErr := filepath.Rel(resolved, match.Path)
			if relErr != nil {
				rel = match.Path
			}
			fmt.Fprintf(&out, "%s:%d: %s\n", filepath.ToSlash(rel), match.Line, match.Text)
		}
		if search.Truncated {
			out.WriteString("... [results truncated]\n")
		}
	}

	return tools.Ok(call, out.String(), map[string]any{
		"query":         query,
		"matches":       len(search.Matches),
		"files_visited": search.FilesVisited,
		"truncated":     search.Truncated,
	}), nil
}

func (t *contentSearch) Definition() tools.Definition {
	return tools.Definition{
		Name:        "content_search",
		Description: "Search workspace file contents for a literal string, bounded by file and result caps.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"query":       {Type: "string", Description: "Literal substring to find"},
				"path":        {Type: "string", Description: "Directory to search; defaults to the workspace root"},
				"max_results": {Type: "integer", Description: "Match cap"},
			},
			Required: []string{"query"},
		},
	}
}

func (t *contentSearch) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "content_search",
		Category:   "search",
		Tags:       []string{"filesystem", "read", "search"},
		Permission: tools.PermissionRead,
	}
}
