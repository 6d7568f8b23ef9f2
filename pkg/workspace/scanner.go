package workspace

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ListFiles enumerates note files under the workspace root and its memory/
// subdirectory. Both locations are scanned non-recursively; deeper
// subdirectories are never descended into. Enumeration and stat failures
// contribute zero entries instead of failing the call, so a half-created
// workspace still lists whatever is visible. The result is never nil.
func ListFiles(workspaceRoot string) []FileEntry {
	entries := make([]FileEntry, 0, 8)
	entries = append(entries, listDir(workspaceRoot, "")...)
	memDir := filepath.Join(workspaceRoot, MemoryDirName)
	entries = append(entries, listDir(memDir, MemoryDirName)...)
	return entries
}

// listDir collects note files that are direct children of dir. relPrefix is
// the forward-slash path of dir relative to the workspace root, empty for
// the root itself.
func listDir(dir, relPrefix string) []FileEntry {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []FileEntry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), NoteExtension) {
			continue
		}

		// Stat follows symlinks; files that vanish between readdir and
		// stat are treated as never having been there.
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		if err != nil || info.IsDir() {
			continue
		}

		rel := de.Name()
		if relPrefix != "" {
			rel = path.Join(relPrefix, de.Name())
		}

		files = append(files, FileEntry{
			Path:         rel,
			SizeBytes:    info.Size(),
			ModifiedAtMs: info.ModTime().UnixMilli(),
		})
	}

	return files
}
