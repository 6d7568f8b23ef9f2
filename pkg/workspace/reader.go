package workspace

import (
	"fmt"
	"os"
	"strings"
)

// ReadFile returns the content of a workspace file, optionally narrowed to
// a line window. The path is resolved through the guard first; filesystem
// errors are wrapped so callers can match os.ErrNotExist for their
// fallback policy.
func ReadFile(workspaceRoot, relativePath string, window *Window) (string, error) {
	fullPath, err := Resolve(workspaceRoot, relativePath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if window == nil {
		return string(data), nil
	}

	return ApplyWindow(string(data), window), nil
}

// ApplyWindow extracts the requested line range from content. Lines are
// split on "\n" only; a trailing "\r" stays attached to its line. Windows
// that fall outside the content return an empty string, not an error.
func ApplyWindow(content string, window *Window) string {
	if window == nil {
		return content
	}

	lines := strings.Split(content, "\n")

	start := window.FromLine - 1
	if start < 0 {
		start = 0
	}

	count := len(lines) - start
	if window.LineCount != nil {
		count = *window.LineCount
	}

	if start >= len(lines) || count <= 0 {
		return ""
	}

	end := start + count
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}
