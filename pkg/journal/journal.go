package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evharten/mnema/pkg/workspace"
	"gopkg.in/yaml.v3"
)

const (
	// IndexFileName is the top-level note index seeded into every workspace.
	IndexFileName = "MEMORY.md"

	// ArchiveDirName is the directory under memory/ that swept daily notes
	// move into. The scanner does not descend into it.
	ArchiveDirName = "archive"

	// OverridesFileName is the per-workspace settings file. Not a note, so
	// it never shows up in listings.
	OverridesFileName = ".mnema.yaml"

	indexSeed       = "# Memory\n\n"
	dailyNameLayout = "2006-01-02"
)

// Settings are the effective housekeeping values for one workspace.
type Settings struct {
	RetentionDays int
	DailyNotes    bool
}

// Overrides mirror the optional .mnema.yaml fields. Absent fields leave the
// configured defaults in place.
type Overrides struct {
	RetentionDays *int  `yaml:"retention_days"`
	DailyNotes    *bool `yaml:"daily_notes"`
}

// LoadSettings applies a workspace's .mnema.yaml over the defaults. A
// missing file returns the defaults unchanged; a malformed one returns the
// defaults together with the parse error.
func LoadSettings(root string, defaults Settings) (Settings, error) {
	data, err := os.ReadFile(filepath.Join(root, OverridesFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("failed to read workspace overrides: %w", err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return defaults, fmt.Errorf("failed to parse workspace overrides: %w", err)
	}

	settings := defaults
	if overrides.RetentionDays != nil {
		if *overrides.RetentionDays < 0 {
			return defaults, fmt.Errorf("retention_days must be >= 0, got %d", *overrides.RetentionDays)
		}
		settings.RetentionDays = *overrides.RetentionDays
	}
	if overrides.DailyNotes != nil {
		settings.DailyNotes = *overrides.DailyNotes
	}

	return settings, nil
}

// EnsureLayout creates the workspace note layout: the root directory,
// memory/, a seeded MEMORY.md and today's daily note. Existing files are
// left untouched.
func EnsureLayout(root string) error {
	if err := ensureBaseLayout(root); err != nil {
		return err
	}
	return EnsureDailyNote(root, time.Now())
}

// ensureBaseLayout creates the directories and the MEMORY.md index.
func ensureBaseLayout(root string) error {
	memDir := filepath.Join(root, workspace.MemoryDirName)
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace layout: %w", err)
	}
	return seedFile(filepath.Join(root, IndexFileName), indexSeed)
}

// EnsureDailyNote creates the daily note for the given day when missing.
func EnsureDailyNote(root string, day time.Time) error {
	name := day.Format(dailyNameLayout)
	path := filepath.Join(root, workspace.MemoryDirName, name+workspace.NoteExtension)
	return seedFile(path, fmt.Sprintf("# %s\n", name))
}

// DailyNotePath returns the workspace-relative path of a day's note.
func DailyNotePath(day time.Time) string {
	return workspace.MemoryDirName + "/" + day.Format(dailyNameLayout) + workspace.NoteExtension
}

// seedFile writes content to path unless the file already exists.
func seedFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to seed %s: %w", filepath.Base(path), err)
	}
	return nil
}

// parseDailyNoteName reports whether a file name is a daily note and the day
// it covers.
func parseDailyNoteName(name string) (time.Time, bool) {
	if !strings.HasSuffix(name, workspace.NoteExtension) {
		return time.Time{}, false
	}
	day, err := time.Parse(dailyNameLayout, strings.TrimSuffix(name, workspace.NoteExtension))
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// sweepDailyNotes moves daily notes older than the retention window into
// memory/archive/ and returns how many moved. Retention 0 disables the
// sweep. Notes dated exactly retentionDays ago stay put.
func sweepDailyNotes(root string, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	memDir := filepath.Join(root, workspace.MemoryDirName)
	entries, err := os.ReadDir(memDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan journal directory: %w", err)
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	cutoffDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	archived := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := parseDailyNoteName(entry.Name())
		if !ok || !day.Before(cutoffDay) {
			continue
		}

		archiveDir := filepath.Join(memDir, ArchiveDirName)
		if err := os.MkdirAll(archiveDir, 0o755); err != nil {
			return archived, fmt.Errorf("failed to create archive directory: %w", err)
		}
		if err := os.Rename(filepath.Join(memDir, entry.Name()), filepath.Join(archiveDir, entry.Name())); err != nil {
			return archived, fmt.Errorf("failed to archive %s: %w", entry.Name(), err)
		}
		archived++
	}

	return archived, nil
}
