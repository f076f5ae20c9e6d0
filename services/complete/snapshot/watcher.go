// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default quiet period before a changed file is
// reloaded.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads store entries when their files change.
//
// # Description
//
// Watches the parent directories of registered snapshot files, since
// editors and build tools usually replace files by rename. Events for
// other files are ignored. Changes are debounced per path; after the quiet
// period an existing file is reloaded and a missing one marks its entry
// stale. Reload failures are logged and keep the previous entry.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads run on a single goroutine.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.RWMutex
	files map[string]bool
	dirs  map[string]bool

	// onFlush is called after each batch. Used by tests.
	onFlush func(paths []string)
}

// NewWatcher creates a Watcher for store. debounce <= 0 uses
// DefaultDebounce.
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan string, 256),
		done:     make(chan struct{}),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Watch registers a snapshot file.
func (w *Watcher) Watch(path string) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[abs] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		delete(w.files, abs)
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Unwatch stops reacting to changes of path. The directory stays watched.
func (w *Watcher) Unwatch(path string) {
	abs, err := absPath(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	delete(w.files, abs)
	w.mu.Unlock()
}

// Start begins processing events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) watched(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[path]
}

func (w *Watcher) processEvents(ctx context.Context) {
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
			path := filepath.Clean(event.Name)
			if !w.watched(path) {
				continue
			}
			select {
			case w.changes <- path:
			default:
				w.logger.Warn("snapshot change dropped, buffer full", slog.String("path", path))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]bool)
	var order []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(order) > 0 {
			w.apply(ctx, order)
			if w.onFlush != nil {
				w.onFlush(order)
			}
			pending = make(map[string]bool)
			order = nil
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.changes:
			if !pending[path] {
				pending[path] = true
				order = append(order, path)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// apply reloads or marks stale each changed path.
func (w *Watcher) apply(ctx context.Context, paths []string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if w.store.MarkStale(path) {
				w.logger.Info("snapshot file removed, entry marked stale", slog.String("path", path))
			}
			continue
		}
		if _, err := w.store.Reload(ctx, path); err != nil {
			w.logger.Warn("snapshot reload failed, keeping previous version",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}
