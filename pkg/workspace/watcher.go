package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// EventKind classifies a change to a note file.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventChange EventKind = "change"
	EventDelete EventKind = "delete"
)

// Event describes a change to a note file. Path is relative to the
// workspace root and uses forward slashes, matching listing output.
type Event struct {
	Path string
	Kind EventKind
}

// EventHandler receives debounced note file events.
type EventHandler func(Event)

// Watcher monitors the workspace root and its memory/ subdirectory for
// note file changes. The watch scope mirrors the listing scope: the two
// fixed locations, non-recursive, note extension only.
type Watcher struct {
	watcher            *fsnotify.Watcher
	root               string
	stabilityThreshold time.Duration
	handler            EventHandler
	done               chan struct{}
	debounceTimers     map[string]*time.Timer
	pendingOps         map[string]fsnotify.Op
	debounceMu         sync.Mutex
	stopOnce           sync.Once
}

// WatcherConfig holds configuration for the watcher.
type WatcherConfig struct {
	Root               string
	StabilityThreshold time.Duration
	Handler            EventHandler
}

// NewWatcher creates a watcher for the given workspace root.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if config.StabilityThreshold == 0 {
		config.StabilityThreshold = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:            watcher,
		root:               filepath.Clean(config.Root),
		stabilityThreshold: config.StabilityThreshold,
		handler:            config.Handler,
		done:               make(chan struct{}),
		debounceTimers:     make(map[string]*time.Timer),
		pendingOps:         make(map[string]fsnotify.Op),
	}, nil
}

// Start begins watching the workspace locations.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}

	// The memory directory may not exist yet; it gets picked up from its
	// create event once something seeds it.
	memDir := filepath.Join(w.root, MemoryDirName)
	if info, err := os.Stat(memDir); err == nil && info.IsDir() {
		if err := w.watcher.Add(memDir); err != nil {
			log.Warn().Err(err).Str("path", memDir).Msg("Failed to watch memory directory")
		}
	}

	go w.eventLoop()

	log.Info().
		Str("path", w.root).
		Msg("Workspace watcher started")

	return nil
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	clear(w.debounceTimers)
	w.debounceMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	log.Info().Msg("Workspace watcher stopped")
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// A freshly created memory/ directory joins the watch set.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if event.Name == filepath.Join(w.root, MemoryDirName) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch memory directory")
				}
				return
			}
		}
	}

	rel, ok := w.scopedRelPath(event.Name)
	if !ok {
		return
	}

	w.debounceEvent(event, rel)
}

// scopedRelPath reports the forward-slash relative path of name when it is
// a note file in one of the two watched locations.
func (w *Watcher) scopedRelPath(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", false
	}

	if !strings.HasSuffix(rel, NoteExtension) {
		return "", false
	}

	if i := strings.IndexByte(rel, '/'); i >= 0 {
		if rel[:i] != MemoryDirName || strings.ContainsRune(rel[i+1:], '/') {
			return "", false
		}
	}

	return rel, true
}

// debounceEvent collapses rapid changes to the same file into one event.
// Ops seen inside the window are merged, so the create+write burst of a
// fresh file reports a single add.
func (w *Watcher) debounceEvent(event fsnotify.Event, rel string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[event.Name]; exists {
		timer.Stop()
	}

	name := event.Name
	w.pendingOps[name] |= event.Op

	w.debounceTimers[name] = time.AfterFunc(w.stabilityThreshold, func() {
		w.debounceMu.Lock()
		op := w.pendingOps[name]
		delete(w.pendingOps, name)
		delete(w.debounceTimers, name)
		w.debounceMu.Unlock()

		select {
		case <-w.done:
			return
		default:
			w.processEvent(op, rel)
		}
	})
}

func (w *Watcher) processEvent(op fsnotify.Op, rel string) {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		w.handler(Event{Path: rel, Kind: EventAdd})

	case op&fsnotify.Write == fsnotify.Write:
		w.handler(Event{Path: rel, Kind: EventChange})

	case op&fsnotify.Remove == fsnotify.Remove:
		w.handler(Event{Path: rel, Kind: EventDelete})

	case op&fsnotify.Rename == fsnotify.Rename:
		// Rename away is a delete; the new name arrives as its own create.
		w.handler(Event{Path: rel, Kind: EventDelete})
	}
}
