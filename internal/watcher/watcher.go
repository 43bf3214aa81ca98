// Package watcher feeds filesystem changes under the configured content
// roots into the indexing queue. Raw fsnotify events are debounced and
// mapped to queue operations: created files become ADD requests, writes
// become UPDATE, removals and renames become DELETE.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	"github.com/Aman-CERP/fulltextd/internal/queue"
)

// DefaultDebounce is the window in which events for the same path coalesce.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches content roots recursively and enqueues index requests.
type Watcher struct {
	queue    *queue.Queue
	log      *slog.Logger
	debounce time.Duration
}

func New(q *queue.Queue, log *slog.Logger) *Watcher {
	return &Watcher{
		queue:    q,
		log:      log.With("component", "watcher"),
		debounce: DefaultDebounce,
	}
}

// Run watches the given roots until the context is cancelled. Missing roots
// are skipped with a warning; directories created later under a watched
// root are picked up automatically.
func (w *Watcher) Run(ctx context.Context, roots []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	watched := 0
	for _, root := range roots {
		if err := w.watchTree(fsw, root); err != nil {
			w.log.Warn("skipping unwatchable root", "root", root, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 && len(roots) > 0 {
		w.log.Warn("no watchable roots, watcher idle")
	}

	deb := newDebouncer(w.debounce)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, deb, event)

		case batch := <-deb.batches():
			for _, req := range batch {
				if err := w.queue.Enqueue(req); err != nil {
					w.log.Error("enqueue from watcher failed",
						"request", req, "error", err)
				}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, deb *debouncer, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := w.watchTree(fsw, event.Name); err != nil {
				w.log.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
		deb.add(event.Name, domain.OpAdd)

	case event.Has(fsnotify.Write):
		deb.add(event.Name, domain.OpUpdate)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		deb.add(event.Name, domain.OpDelete)
	}
}

// watchTree registers root and every directory below it. fsnotify watches
// are not recursive on their own.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}
