// Package queue persists index requests and drains them into the indexing
// pipeline with either a parallel or a serial consumption strategy.
package queue

import "github.com/Aman-CERP/fulltextd/internal/domain"

// PageSize is how many locked requests a serial drain reads per page.
const PageSize = 50

// Store is the durable backlog of index requests. Requests are identified
// by the (id, path, operation) triple; enqueue order is preserved.
type Store interface {
	// Insert enqueues a request as QUEUED. Re-inserting an already queued
	// triple refreshes nothing and is not an error.
	Insert(req *domain.IndexRequest) error

	// ClaimOneQueued atomically moves the oldest QUEUED request to LOCKED
	// and returns it. ok is false when the queue has no QUEUED requests.
	// No two concurrent claimers ever receive the same request.
	ClaimOneQueued() (req *domain.IndexRequest, ok bool, err error)

	// RelockAllQueued moves every QUEUED request to LOCKED and reports how
	// many moved.
	RelockAllQueued() (int64, error)

	// CountByStatus reports how many requests sit in the given status.
	CountByStatus(status domain.Status) (int, error)

	// ListByStatus returns one page of requests in the given status,
	// ordered by enqueue position. Pages are zero-based and PageSize long.
	ListByStatus(status domain.Status, page int) ([]*domain.IndexRequest, error)

	// MarkStatus sets the status of one request by its identity triple.
	MarkStatus(req *domain.IndexRequest, status domain.Status) error

	// DeleteByStatus removes every request in the given status.
	DeleteByStatus(status domain.Status) (int64, error)

	// DeleteExact removes one request by its identity triple.
	DeleteExact(req *domain.IndexRequest) error

	Close() error
}
