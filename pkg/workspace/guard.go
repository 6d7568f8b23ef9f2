package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolve joins relativePath to workspaceRoot and verifies the result stays
// inside the root. The check is purely lexical: the joined path is cleaned,
// collapsing "." and ".." segments, and must equal the root or begin with
// the root followed by the path separator. No filesystem access happens
// here, so the guard cannot hang or fail on I/O.
func Resolve(workspaceRoot, relativePath string) (string, error) {
	root := filepath.Clean(workspaceRoot)

	candidate := filepath.FromSlash(relativePath)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	sep := string(filepath.Separator)
	if candidate != root && !strings.HasPrefix(candidate+sep, root+sep) {
		return "", fmt.Errorf("%w: %s", ErrOutOfScope, relativePath)
	}

	return candidate, nil
}
