package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

type fileEdit struct{}

func NewFileEdit() tools.Tool {
	return &fileEdit{}
}

// ApprovalFor renders the pending replacement as a diff so the operator
// reviews the actual change, not just the file name.
func (t *fileEdit) ApprovalFor(ctx context.Context, call tools.Call) (*tools.ApprovalPlan, bool) {
	path := call.String("path")
	plan := &tools.ApprovalPlan{
		Kind:    "file_edit",
		Summary: fmt.Sprintf("Edit %s", path),
		Details: map[string]any{"path": path},
	}
	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return plan, true
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return plan, true
	}
	oldString := call.String("old_string")
	newString := call.String("new_string")
	if oldString != "" && strings.Count(string(content), oldString) == 1 {
		plan.Details["diff"] = renderDiff(oldString, newString)
	}
	return plan, true
}

func (t *fileEdit) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	path := call.String("path")
	if path == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'path'"), nil
	}
	oldString := call.String("old_string")
	if oldString == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'old_string'"), nil
	}
	newString, ok := call.Arguments["new_string"].(string)
	if !ok {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'new_string'"), nil
	}

	resolved, _, err := resolvePath(ctx, path)
	if err != nil {
		return tools.Fail(call, err), nil
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "read %s", path)), nil
	}
	text := string(content)

	occurrences := strings.Count(text, oldString)
	if occurrences == 0 {
		return tools.Failf(call, runtimeerrors.KindIO, "old_string not found in %s", path), nil
	}
	if occurrences > 1 {
		return tools.Failf(call, runtimeerrors.KindIO,
			"old_string appears %d times in %s; include more context to make it unique", occurrences, path), nil
	}

	updated := strings.Replace(text, oldString, newString, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "write %s", path)), nil
	}

	return tools.Ok(call, fmt.Sprintf("Edited %s", path), map[string]any{
		"path": path,
		"diff": renderDiff(oldString, newString),
	}), nil
}

// renderDiff summarizes a replacement as removed/added line pairs.
func renderDiff(oldString, newString string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldString, newString, true))

	var out strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writePrefixed(&out, "-", d.Text)
		case diffmatchpatch.DiffInsert:
			writePrefixed(&out, "+", d.Text)
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

func writePrefixed(out *strings.Builder, prefix, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		out.WriteString(prefix)
		out.WriteString(" ")
		out.WriteString(line)
		out.WriteString("\n")
	}
}

func (t *fileEdit) Definition() tools.Definition {
	return tools.Definition{
		Name:        "file_edit",
		Description: "Replace one unique occurrence of old_string with new_string in a workspace file.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"path":       {Type: "string", Description: "Workspace-relative file path"},
				"old_string": {Type: "string", Description: "Exact text to replace; must occur exactly once"},
				"new_string": {Type: "string", Description: "Replacement text"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *fileEdit) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:       "file_edit",
		Category:   "file_operations",
		Tags:       []string{"filesystem", "write"},
		Permission: tools.PermissionWrite,
	}
}
