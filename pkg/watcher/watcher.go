// Package watcher converts OS file notifications into automation events.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// Watcher observes directory trees and emits api.Events. fsnotify watches
// are non-recursive, so recursive mode walks and watches each
// subdirectory, including directories created while watching.
type Watcher struct {
	fsw       *fsnotify.Watcher
	recursive bool
	logger    *slog.Logger
	events    chan api.Event

	mu      sync.Mutex
	watched []string
	closed  bool
}

// New creates a watcher. Callers must drain Events until Close.
func New(recursive bool, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errx.Wrap(api.ErrWatch, err)
	}
	w := &Watcher{
		fsw:       fsw,
		recursive: recursive,
		logger:    logger,
		events:    make(chan api.Event, 64),
	}
	go w.run()
	return w, nil
}

// Events is the stream of converted events. It is closed by Close.
func (w *Watcher) Events() <-chan api.Event { return w.events }

// Watch adds a directory tree to the watch list.
func (w *Watcher) Watch(path string) error {
	if err := w.add(path); err != nil {
		return err
	}
	if !w.recursive {
		return nil
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == path {
			return err
		}
		return w.add(p)
	})
}

func (w *Watcher) add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return errx.With(api.ErrWatch, ": failed to watch %s: %v", path, err)
	}
	w.mu.Lock()
	if !slices.Contains(w.watched, path) {
		w.watched = append(w.watched, path)
	}
	w.mu.Unlock()
	w.logger.Info("watching path", "path", path)
	return nil
}

// Unwatch removes a single path from the watch list.
func (w *Watcher) Unwatch(path string) error {
	if err := w.fsw.Remove(path); err != nil {
		return errx.With(api.ErrWatch, ": failed to unwatch %s: %v", path, err)
	}
	w.mu.Lock()
	w.watched = slices.DeleteFunc(w.watched, func(p string) bool { return p == path })
	w.mu.Unlock()
	return nil
}

// Watched returns the currently watched paths.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.watched)
}

// Close stops the watcher and closes the event stream.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

// run converts raw notifications until the underlying watcher closes.
func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if converted, ok := w.convert(ev); ok {
				w.events <- converted
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// convert maps one fsnotify notification to an automation event. Renames
// surface as a deletion of the old name; the new name arrives as its own
// create notification.
func (w *Watcher) convert(ev fsnotify.Event) (api.Event, bool) {
	source := filepath.Dir(ev.Name)
	switch {
	case ev.Op.Has(fsnotify.Create):
		if w.recursive {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.add(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
				return api.Event{}, false
			}
		}
		return api.FileCreated(ev.Name, source), true
	case ev.Op.Has(fsnotify.Write):
		return api.FileModified(ev.Name, source), true
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		return api.FileDeleted(ev.Name, source), true
	}
	return api.Event{}, false
}
