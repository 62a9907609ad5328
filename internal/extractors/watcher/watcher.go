// Package watcher observes a directory tree and emits change events
// for supported files, driving re-ingestion in watch mode.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragline/internal/logger"
)

// EventType describes what happened to a file.
type EventType string

// Event types emitted by the watcher.
const (
	// EventUpsert means the file was created or modified and should be
	// re-ingested.
	EventUpsert EventType = "upsert"

	// EventDelete means the file was removed or renamed away and its
	// records should be deleted.
	EventDelete EventType = "delete"
)

// Event is a change to a watched file.
type Event struct {
	Type EventType
	Path string
}

// DefaultDebounce coalesces rapid successive writes to the same file.
const DefaultDebounce = 500 * time.Millisecond

// Watcher emits Events for supported files under a directory tree.
// New subdirectories are picked up automatically.
type Watcher struct {
	fs       *fsnotify.Watcher
	supports func(path string) bool
	debounce time.Duration
	events   chan Event

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the write-coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over the directory tree rooted at dir. The
// supports predicate filters which files produce events.
func New(dir string, supports func(path string) bool, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		supports: supports,
		debounce: DefaultDebounce,
		events:   make(chan Event, 64),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel of change events. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run dispatches filesystem events until the context is cancelled or
// the underlying watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		w.closed = true
		for path, timer := range w.pending {
			timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.fs.Close()
}

// handle maps one fsnotify event to zero or one Event.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return
	}

	// Start watching directories as they appear.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("Watching new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !w.supports(event.Name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.cancelPending(event.Name)
		w.emit(ctx, Event{Type: EventDelete, Path: event.Name})
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.schedule(ctx, event.Name)
	}
	// Chmod is ignored.
}

// schedule coalesces rapid writes: the upsert fires only after the
// debounce window passes without another write.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	if w.closed {
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.emit(ctx, Event{Type: EventUpsert, Path: path})
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) emit(ctx context.Context, event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- event:
	case <-ctx.Done():
	}
}

// addTree registers dir and all its non-hidden subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) && path != dir {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
