package workspace

import "errors"

// NoteExtension is the only file extension eligible for listing and writing.
const NoteExtension = ".md"

// MemoryDirName is the subdirectory of the workspace root that holds
// long-term note files.
const MemoryDirName = "memory"

var (
	// ErrOutOfScope indicates a path that resolves outside the workspace root.
	ErrOutOfScope = errors.New("path escapes workspace root")

	// ErrUnsupportedType indicates a write target without the note extension.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// FileEntry describes one note file found by a listing call. Paths are
// relative to the workspace root and always use forward slashes.
type FileEntry struct {
	Path         string `json:"path"`
	SizeBytes    int64  `json:"sizeBytes"`
	ModifiedAtMs int64  `json:"modifiedAtMs"`
}

// Window selects a contiguous line range of a file. FromLine is 1-indexed
// and inclusive. LineCount nil means all remaining lines.
type Window struct {
	FromLine  int
	LineCount *int
}

// WriteResult reports the outcome of a successful write.
type WriteResult struct {
	OK           bool   `json:"ok"`
	Path         string `json:"path"`
	BytesWritten int    `json:"bytesWritten"`
	Created      bool   `json:"created"`
}
