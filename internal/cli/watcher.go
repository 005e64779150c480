package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of file change event.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns a human-readable string for the event type.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileEvent represents a debounced file change event.
type FileEvent struct {
	Type EventType
	Path string
}

// WatchHandler is called when a file change is detected.
type WatchHandler func(event FileEvent)

// Watcher watches files and directories for changes, coalescing bursts of
// events per file.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	handler   WatchHandler
	filters   []glob.Glob
	wg        sync.WaitGroup
	events    chan FileEvent
	done      chan struct{}
	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// NewWatcher creates a file watcher. Filter patterns, when given, restrict
// which changed paths reach the handler.
func NewWatcher(debounce time.Duration, patterns []string, handler WatchHandler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		debounce: debounce,
		handler:  handler,
		events:   make(chan FileEvent, 100),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			_ = fsWatcher.Close()
			return nil, err
		}
		w.filters = append(w.filters, g)
	}

	return w, nil
}

// Watch adds a file or directory to the watch list.
func (w *Watcher) Watch(path string) error {
	return w.watcher.Add(path)
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		w.processLoop(ctx)
	}()

	go func() {
		defer w.wg.Done()
		w.dispatchLoop(ctx)
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()

	w.pendingMu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pendingMu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleFSEvent converts an fsnotify event to a FileEvent and debounces it.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventCreated
	case event.Op&fsnotify.Write != 0:
		eventType = EventModified
	case event.Op&fsnotify.Remove != 0:
		eventType = EventDeleted
	case event.Op&fsnotify.Rename != 0:
		eventType = EventRenamed
	default:
		return
	}

	if !w.matches(event.Name) {
		return
	}

	fileEvent := FileEvent{Type: eventType, Path: event.Name}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, exists := w.pending[event.Name]; exists {
		timer.Stop()
	}

	w.pending[event.Name] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, event.Name)
		w.pendingMu.Unlock()

		select {
		case w.events <- fileEvent:
		default:
			log.Warn().Str("path", event.Name).Msg("Event channel full, dropping event")
		}
	})
}

func (w *Watcher) matches(path string) bool {
	if len(w.filters) == 0 {
		return true
	}
	norm := filepath.ToSlash(path)
	for _, g := range w.filters {
		if g.Match(norm) || g.Match(filepath.Base(path)) {
			return true
		}
	}
	return false
}

func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event := <-w.events:
			w.handler(event)
		}
	}
}

// newManifestWatcher watches the deploy manifest and its functions
// directory, invoking onChange with the changed path.
func newManifestWatcher(onChange func(path string)) (*Watcher, error) {
	w, err := NewWatcher(cfg.Watch.Debounce, cfg.Watch.Patterns, func(event FileEvent) {
		if event.Type == EventDeleted {
			return
		}
		log.Debug().Str("event", event.Type.String()).Str("path", event.Path).Msg("File changed")
		onChange(event.Path)
	})
	if err != nil {
		return nil, err
	}

	if err := w.Watch(cfg.Manifest.Path); err != nil {
		_ = w.watcher.Close()
		return nil, err
	}

	// Watching the functions directory is best effort: the manifest may
	// not declare one, or validation may be reporting that it is missing.
	if m, err := loadManifest(); err == nil {
		if dir := functionsDir(m); dir != "" {
			if err := w.Watch(dir); err != nil {
				log.Debug().Err(err).Str("dir", dir).Msg("Not watching functions directory")
			}
		}
	}

	return w, nil
}
