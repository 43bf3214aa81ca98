package watcher

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/fulltextd/internal/domain"
)

// debouncer coalesces rapid file events so editor save storms and git
// operations do not thrash the queue. Events for the same path within the
// window are merged:
//   - ADD + UPDATE = ADD (file is still new)
//   - ADD + DELETE = nothing (file never really existed)
//   - UPDATE + DELETE = DELETE (file is gone)
//   - DELETE + ADD = UPDATE (file was replaced)
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]domain.Operation
	order   []string
	output  chan []*domain.IndexRequest
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]domain.Operation),
		output:  make(chan []*domain.IndexRequest, 10),
	}
}

// add records one raw event for the path.
func (d *debouncer) add(path string, op domain.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if existing, ok := d.pending[path]; ok {
		merged, keep := coalesce(existing, op)
		if !keep {
			delete(d.pending, path)
			d.removeFromOrder(path)
		} else {
			d.pending[path] = merged
		}
	} else {
		d.pending[path] = op
		d.order = append(d.order, path)
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

func coalesce(first, second domain.Operation) (domain.Operation, bool) {
	switch {
	case first == domain.OpAdd && second == domain.OpDelete:
		return "", false
	case first == domain.OpAdd:
		return domain.OpAdd, true
	case first == domain.OpDelete && second == domain.OpAdd:
		return domain.OpUpdate, true
	case second == domain.OpDelete:
		return domain.OpDelete, true
	default:
		return first, true
	}
}

func (d *debouncer) removeFromOrder(path string) {
	for i, p := range d.order {
		if p == path {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

// flush emits the coalesced batch in the order paths were first seen. The
// send stays under the mutex so it cannot race a concurrent stop closing
// the channel; it is non-blocking so a slow consumer cannot wedge the lock.
func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	batch := make([]*domain.IndexRequest, 0, len(d.pending))
	for _, path := range d.order {
		op, ok := d.pending[path]
		if !ok {
			continue
		}
		batch = append(batch, &domain.IndexRequest{
			Content:   &domain.Content{ID: path, Path: path},
			Operation: op,
		})
	}
	d.pending = make(map[string]domain.Operation)
	d.order = nil
	d.timer = nil

	if len(batch) == 0 {
		return
	}
	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer output full, dropping batch", "batch_size", len(batch))
	}
}

// batches returns the channel of coalesced event batches.
func (d *debouncer) batches() <-chan []*domain.IndexRequest {
	return d.output
}

// stop drops pending events and closes the batch channel. Closing under
// the mutex keeps it exclusive with an in-flight flush.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	close(d.output)
}
