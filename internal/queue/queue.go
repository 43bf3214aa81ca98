package queue

import (
	"log/slog"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

// Queue is the service wrapper over the durable store. Store failures on
// the drain path are logged and reported as empty results so a transient
// database error degrades a cycle instead of crashing the daemon; the
// backlog is retried on the next cycle.
type Queue struct {
	store   Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(store Store, m *metrics.Metrics, log *slog.Logger) *Queue {
	return &Queue{
		store:   store,
		metrics: m,
		log:     log.With("component", "queue"),
	}
}

// Enqueue validates and persists an index request as QUEUED.
func (q *Queue) Enqueue(req *domain.IndexRequest) error {
	if req == nil {
		return errs.InvalidRequest("nil index request")
	}
	if req.Content == nil {
		return errs.NullContent()
	}
	if !req.Valid() {
		return errs.InvalidRequest(req.String())
	}
	if err := q.store.Insert(req); err != nil {
		return err
	}
	q.metrics.QueueEnqueued.Inc()
	q.observeDepth()
	return nil
}

// ClaimNext locks and returns the oldest queued request, or ok=false when
// the queue is empty or the store failed.
func (q *Queue) ClaimNext() (*domain.IndexRequest, bool) {
	req, ok, err := q.store.ClaimOneQueued()
	if err != nil {
		q.log.Error("claim failed", "error", err)
		return nil, false
	}
	if ok {
		q.observeDepth()
	}
	return req, ok
}

// LockAll moves the whole QUEUED backlog to LOCKED and reports how many
// requests moved.
func (q *Queue) LockAll() int64 {
	n, err := q.store.RelockAllQueued()
	if err != nil {
		q.log.Error("lock all failed", "error", err)
		return 0
	}
	q.observeDepth()
	return n
}

// LockedPages reports how many PageSize pages the LOCKED backlog spans.
func (q *Queue) LockedPages() int {
	n, err := q.store.CountByStatus(domain.StatusLocked)
	if err != nil {
		q.log.Error("locked count failed", "error", err)
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// LockedPage returns one page of the LOCKED backlog in enqueue order.
func (q *Queue) LockedPage(page int) []*domain.IndexRequest {
	reqs, err := q.store.ListByStatus(domain.StatusLocked, page)
	if err != nil {
		q.log.Error("locked page failed", "page", page, "error", err)
		return nil
	}
	return reqs
}

// Consume marks a request CONSUMED after a successful apply.
func (q *Queue) Consume(req *domain.IndexRequest) {
	if err := q.store.MarkStatus(req, domain.StatusConsumed); err != nil {
		q.log.Error("consume failed", "request", req, "error", err)
	}
}

// Purge removes one request outright.
func (q *Queue) Purge(req *domain.IndexRequest) {
	if err := q.store.DeleteExact(req); err != nil {
		q.log.Error("purge failed", "request", req, "error", err)
	}
	q.observeDepth()
}

// PurgeConsumed removes every CONSUMED request.
func (q *Queue) PurgeConsumed() int64 {
	n, err := q.store.DeleteByStatus(domain.StatusConsumed)
	if err != nil {
		q.log.Error("purge consumed failed", "error", err)
		return 0
	}
	q.observeDepth()
	return n
}

// Depth reports how many requests sit in the given status.
func (q *Queue) Depth(status domain.Status) int {
	n, err := q.store.CountByStatus(status)
	if err != nil {
		q.log.Error("depth failed", "status", string(status), "error", err)
		return 0
	}
	return n
}

// observeDepth refreshes the per-status depth gauges. Requests that stay
// LOCKED with no active drain are the dead letters of failed applies; the
// stuck gauge is what alerting watches.
func (q *Queue) observeDepth() {
	for _, status := range []domain.Status{domain.StatusQueued, domain.StatusLocked, domain.StatusConsumed} {
		n, err := q.store.CountByStatus(status)
		if err != nil {
			return
		}
		q.metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(n))
		if status == domain.StatusLocked {
			q.metrics.QueueStuckLocked.Set(float64(n))
		}
	}
}
