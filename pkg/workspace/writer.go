package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile creates or overwrites a note file, creating parent directories
// as needed. The target must carry the note extension. Overwrites are
// unconditional; concurrent writers to the same path race at the
// filesystem level and this layer provides no locking.
func WriteFile(workspaceRoot, relativePath, content string) (*WriteResult, error) {
	fullPath, err := Resolve(workspaceRoot, relativePath)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(relativePath) != NoteExtension {
		return nil, fmt.Errorf("%w: path must end with %s", ErrUnsupportedType, NoteExtension)
	}

	_, statErr := os.Stat(fullPath)
	created := os.IsNotExist(statErr)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &WriteResult{
		OK:           true,
		Path:         relativePath,
		BytesWritten: len(content),
		Created:      created,
	}, nil
}
