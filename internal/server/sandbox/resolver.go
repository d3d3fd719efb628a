// Package sandbox confines user-supplied paths to a per-user root
// directory. Resolve is the single boundary between request paths and the
// filesystem: every file read, write, upload, or delete must pass through
// it first.
package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mkrutov/termgate/internal/shared"
)

// Resolve converts a user-relative path into a validated absolute path
// inside root. The requested path is joined to root and canonicalized; any
// result outside root (traversal with "..", absolute paths pointing
// elsewhere) fails closed with shared.ErrorAccessDenied. An empty or "."
// request resolves to root itself.
func Resolve(root, requested string) (string, error) {

	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		return "", fmt.Errorf("%w: sandbox root is not absolute", shared.ErrorAccessDenied)
	}

	if requested == "" || requested == "." {
		return root, nil
	}

	var abs string
	if filepath.IsAbs(requested) {
		// absolute requests are only honored when already inside the root
		abs = filepath.Clean(requested)
	} else {
		abs = filepath.Join(root, requested)
	}

	if !within(root, abs) {
		return "", shared.ErrorAccessDenied
	}

	return abs, nil
}

// Rel reports the sandbox-relative form of an absolute path previously
// produced by Resolve.
func Rel(root, abs string) (string, error) {
	root = filepath.Clean(root)
	if !within(root, abs) {
		return "", shared.ErrorAccessDenied
	}
	return filepath.Rel(root, abs)
}

func within(root, abs string) bool {
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}
