// Package workspace provides guarded filesystem access to an agent's
// markdown note workspace.
//
// Invariants:
// - Every read and write resolves through the path guard; a path that
//   escapes the workspace root is rejected before any filesystem call.
// - Listing covers exactly two locations, non-recursively: the workspace
//   root and its memory/ subdirectory.
// - Only files with the note extension (.md) are listed or written.
//
// Usage:
//
//	entries := workspace.ListFiles("/workspace")
//	text, _ := workspace.ReadFile("/workspace", "memory/notes.md", &workspace.Window{FromLine: 3, LineCount: 2})
//	_, _ = workspace.WriteFile("/workspace", "memory/notes.md", "# Notes\n")
//	_ = entries
package workspace
