package queue

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

// SerialIndexer drains the whole backlog in one sweep with a single commit
// at the end. A busy latch makes overlapping cycles no-ops, so a long drain
// is never entered twice.
type SerialIndexer struct {
	queue   *Queue
	proc    Processor
	metrics *metrics.Metrics
	log     *slog.Logger
	busy    atomic.Bool
}

func NewSerialIndexer(q *Queue, proc Processor, m *metrics.Metrics, log *slog.Logger) *SerialIndexer {
	return &SerialIndexer{
		queue:   q,
		proc:    proc,
		metrics: m,
		log:     log.With("component", "indexer", "strategy", "serial"),
	}
}

// Busy reports whether a drain sweep is in progress.
func (x *SerialIndexer) Busy() bool {
	return x.busy.Load()
}

// Cycle locks the entire QUEUED backlog, applies it page by page, commits
// once and purges what was consumed. The sweep also re-lists requests left
// LOCKED by earlier failed applies, giving dead letters another attempt.
func (x *SerialIndexer) Cycle() {
	start := time.Now()
	if !x.busy.CompareAndSwap(false, true) {
		x.metrics.ObserveCycle("serial", "busy", start)
		x.log.Debug("previous sweep still running, skipping cycle")
		return
	}
	defer x.busy.Store(false)

	x.queue.LockAll()

	// Snapshot the backlog before applying anything: consuming shrinks the
	// LOCKED listing, so paging while mutating would skip requests.
	pages := x.queue.LockedPages()
	var backlog []*domain.IndexRequest
	for page := 0; page < pages; page++ {
		backlog = append(backlog, x.queue.LockedPage(page)...)
	}
	if len(backlog) == 0 {
		x.metrics.ObserveCycle("serial", "idle", start)
		return
	}

	var applied []*domain.IndexRequest
	for _, req := range backlog {
		if err := x.proc.Process(req); err != nil {
			x.metrics.IndexErrorsTotal.WithLabelValues(string(req.Operation)).Inc()
			x.log.Error("index request failed, left locked",
				"request", req, "error", err)
			continue
		}
		applied = append(applied, req)
	}

	// Commit before marking anything CONSUMED: a crash after Consume but
	// before the commit would purge rows whose mutations were never made
	// durable. CONSUMED must always imply committed.
	if len(applied) > 0 {
		x.proc.Flush()
	}
	for _, req := range applied {
		x.queue.Consume(req)
		x.metrics.IndexedTotal.WithLabelValues(string(req.Operation)).Inc()
	}
	purged := x.queue.PurgeConsumed()
	x.metrics.ObserveCycle("serial", "ok", start)
	x.log.Info("sweep finished",
		"backlog", len(backlog),
		"applied", len(applied),
		"purged", purged,
		"elapsed", time.Since(start))
}
