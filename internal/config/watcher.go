package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads one config file when it changes and passes the fresh
// result to every registered handler.
type Watcher[T any] struct {
	path     string
	load     func(path string) (T, error)
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	handlers []func(T)
}

// NewWatcher returns a watcher for path. load runs on every change.
func NewWatcher[T any](path string, load func(path string) (T, error), logger *slog.Logger) *Watcher[T] {
	return &Watcher[T]{
		path:     filepath.Clean(path),
		load:     load,
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// SetDebounce changes the quiet period. Call before Run.
func (w *Watcher[T]) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnChange registers handler for successful reloads.
func (w *Watcher[T]) OnChange(handler func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so editors that save by rename are seen.
func (w *Watcher[T]) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Debug("Watching config file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	value, err := w.load(w.path)
	if err != nil {
		w.logger.Warn("Ignoring config change", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	handlers := append([]func(T){}, w.handlers...)
	w.mu.Unlock()

	w.logger.Info("Config file reloaded", "path", w.path)
	for _, handler := range handlers {
		handler(value)
	}
}
