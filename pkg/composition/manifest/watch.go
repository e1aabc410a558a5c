// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manifest

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called after each debounced reload attempt. err is the
// Reload error, or nil when the catalog now holds the new contents.
type ReloadHandler func(catalog *FileCatalog, err error)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is how long to wait for more changes before reloading.
	// Default: 100ms
	Debounce time.Duration
}

// DefaultWatchOptions returns sensible defaults.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{Debounce: 100 * time.Millisecond}
}

// Watcher reloads a FileCatalog when its manifest changes.
//
// # Description
//
// The directory containing the manifest is watched rather than the file
// itself, so editors that save by rename are handled. Events for other
// files in the directory are ignored. Bursts of events are collapsed into
// one reload once the debounce window passes without new events.
//
// # Thread Safety
//
// The handler is called from a single goroutine.
type Watcher struct {
	catalog  *FileCatalog
	watcher  *fsnotify.Watcher
	handler  ReloadHandler
	debounce time.Duration

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Watch starts watching the manifest of catalog until ctx is cancelled or
// Stop is called.
//
// # Example
//
//	w, err := manifest.Watch(ctx, catalog, func(c *manifest.FileCatalog, err error) {
//	    if err != nil {
//	        logger.Warn("manifest reload failed", "error", err)
//	        return
//	    }
//	    decorated = composition.NewDecoratingCatalog(c, opts...)
//	}, nil)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
func Watch(ctx context.Context, catalog *FileCatalog, handler ReloadHandler, opts *WatchOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatchOptions()
		opts = &defaults
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(catalog.Path())); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		catalog:  catalog,
		watcher:  fw,
		handler:  handler,
		debounce: opts.Debounce,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

// Stop stops watching and waits for a pending handler call to return.
func (w *Watcher) Stop() {
	w.release()
	<-w.stopped
}

// release signals the loop and closes the fsnotify watcher, once.
func (w *Watcher) release() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.release()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.catalog.logger.Warn("manifest watch error", "path", w.catalog.Path(), "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			err := w.catalog.Reload()
			if err != nil {
				w.catalog.logger.Warn("manifest reload failed", "path", w.catalog.Path(), "error", err)
			}
			if w.handler != nil {
				w.handler(w.catalog, err)
			}
		}
	}
}

// relevant reports whether event touches the manifest file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.catalog.Path() {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
