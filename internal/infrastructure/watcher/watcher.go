// Package watcher monitors a local project tree for source-file changes.
// It wraps fsnotify with recursive directory registration, extension
// filtering, and short-window stabilization so editors that write files in
// multiple steps produce a single event.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
)

// EventType represents the type of file system event.
type EventType string

// Watch event types.
const (
	EventCreate EventType = "create"
	EventWrite  EventType = "write"
	EventRemove EventType = "remove"
	EventRename EventType = "rename"
)

// Event represents a file system event for a watched source file.
type Event struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Config holds configuration for the file watcher.
type Config struct {
	// StabilizeWindow is how long a path must be quiet before its event is
	// emitted. This is editor-write coalescing, distinct from the reload
	// orchestrator's debounce.
	StabilizeWindow time.Duration
	BufferSize      int
	// Extensions are the file suffixes watched, lowercase with dot.
	Extensions []string
	Logger     *logging.Logger
}

// DefaultWatcherConfig returns sensible default configuration.
func DefaultWatcherConfig() Config {
	return Config{
		StabilizeWindow: 100 * time.Millisecond,
		BufferSize:      100,
		Extensions:      []string{".swift"},
	}
}

// skipDirs are directory names never descended into.
var skipDirs = map[string]struct{}{
	".git":         {},
	".build":       {},
	".swiftpm":     {},
	"DerivedData":  {},
	"node_modules": {},
	".swiftwire":   {},
	"xcuserdata":   {},
}

// Watcher monitors directories for source file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    Config
	logger    *logging.Logger
	events    chan Event
	errors    chan error

	// Stabilization state
	pending   map[string]pendingEvent
	pendingMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// pendingEvent tracks a pending file event awaiting stabilization.
type pendingEvent struct {
	eventType EventType
	timestamp time.Time
}

// NewWatcher creates a new file watcher with the given configuration.
func NewWatcher(cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.StabilizeWindow <= 0 {
		cfg.StabilizeWindow = 100 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".swift"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		logger:    logger,
		events:    make(chan Event, cfg.BufferSize),
		errors:    make(chan error, cfg.BufferSize),
		pending:   make(map[string]pendingEvent),
		ctx:       ctx,
		cancel:    cancel,
	}

	return w, nil
}

// Watch starts watching the given root directory recursively.
func (w *Watcher) Watch(ctx context.Context, root string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.addRecursive(root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	w.wg.Add(1)
	go w.stabilizeProcessor()

	return nil
}

// addRecursive registers root and every non-skipped directory under it.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skipDirs[d.Name()]; skip {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Events returns the channel for receiving watch events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return err
}

// processEvents reads from fsnotify and queues events for stabilization.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// New directories need to be registered for recursion.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, skip := skipDirs[filepath.Base(event.Name)]; !skip {
						_ = w.addRecursive(event.Name)
					}
					continue
				}
			}

			if !w.isWatchedFile(event.Name) {
				continue
			}

			eventType := convertEventType(event.Op)
			if eventType == "" {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = pendingEvent{
				eventType: eventType,
				timestamp: time.Now(),
			}
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Drop error if channel is full
			}
		}
	}
}

// stabilizeProcessor periodically checks for quiet events and emits them.
func (w *Watcher) stabilizeProcessor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.StabilizeWindow / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.emitStableEvents()
		}
	}
}

// emitStableEvents emits events whose paths have been quiet long enough.
func (w *Watcher) emitStableEvents() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	now := time.Now()
	stable := make([]string, 0)

	for path, pending := range w.pending {
		if now.Sub(pending.timestamp) >= w.config.StabilizeWindow {
			stable = append(stable, path)
		}
	}

	for _, path := range stable {
		pending := w.pending[path]
		delete(w.pending, path)

		event := Event{
			Path:      path,
			Type:      pending.eventType,
			Timestamp: pending.timestamp,
		}

		select {
		case w.events <- event:
		default:
			// The edit is lost until the next save of this path.
			w.logger.Debug("event buffer full, dropping stabilized edit",
				"path", path, "type", string(pending.eventType))
		}
	}
}

// SkipDir reports whether a directory name is excluded from watching and
// syncing.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip
}

// isWatchedFile reports whether the path matches a watched extension or is
// the project manifest.
func (w *Watcher) isWatchedFile(path string) bool {
	name := filepath.Base(path)
	if name == "Package.swift" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, watched := range w.config.Extensions {
		if ext == watched {
			return true
		}
	}
	return false
}

// convertEventType converts fsnotify event operation to EventType.
func convertEventType(op fsnotify.Op) EventType {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return EventCreate
	case op&fsnotify.Write == fsnotify.Write:
		return EventWrite
	case op&fsnotify.Remove == fsnotify.Remove:
		return EventRemove
	case op&fsnotify.Rename == fsnotify.Rename:
		return EventRename
	default:
		return ""
	}
}
