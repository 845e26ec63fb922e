package tools

import (
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// Allowed reports whether a tool is dispatchable under the workspace's
// permission set. Gated tools are absent from the manifest entirely, so a
// caller probing for them gets UNKNOWN_TOOL rather than a permission error
// that would reveal the gated capability.
func Allowed(meta Metadata, perms workspace.Permissions) bool {
	switch meta.Permission {
	case PermissionNone:
		return true
	case PermissionRead:
		return perms.Read
	case PermissionWrite:
		return perms.Write
	case PermissionDelete:
		return perms.Delete
	case PermissionNetwork:
		return perms.Network
	case PermissionShell:
		return perms.Shell
	default:
		return false
	}
}
