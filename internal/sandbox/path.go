// Package sandbox provides the path containment check and the bounded I/O
// primitives every file-touching tool goes through.
package sandbox

import (
	"path/filepath"
	"strings"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// PathSandbox resolves candidate paths against a workspace root.
type PathSandbox struct {
	ws *workspace.Workspace
}

func NewPathSandbox(ws *workspace.Workspace) *PathSandbox {
	return &PathSandbox{ws: ws}
}

// Resolve turns a workspace-relative or absolute candidate into a cleaned
// absolute path, rejecting anything whose relation to the workspace root
// escapes it. Ephemeral and unrestricted workspaces skip containment; an
// allow-listed external path passes on an exact or boundary-prefix match.
func (s *PathSandbox) Resolve(candidate string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return "", runtimeerrors.New(runtimeerrors.KindIO, "path cannot be empty")
	}

	root, err := filepath.Abs(filepath.Clean(s.ws.RootPath))
	if err != nil {
		return "", runtimeerrors.Wrap(runtimeerrors.KindIO, err, "resolve workspace root")
	}

	var resolved string
	if filepath.IsAbs(trimmed) {
		resolved = filepath.Clean(trimmed)
	} else {
		resolved = filepath.Clean(filepath.Join(root, trimmed))
	}

	if s.ws.Ephemeral || s.ws.Permissions.UnrestrictedFileAccess {
		return resolved, nil
	}
	if pathWithinBase(root, resolved) {
		return resolved, nil
	}
	if s.ws.AllowsExternal(resolved) {
		return resolved, nil
	}
	return "", runtimeerrors.New(runtimeerrors.KindPathOutsideWorkspace,
		"path %q escapes the workspace root", candidate)
}

// pathWithinBase reports containment using the relative path between base
// and target, never substring comparison, so trailing-slash and shared
// prefix tricks ("/ws" vs "/ws-other") cannot slip through.
func pathWithinBase(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
