package queue

import (
	"log/slog"
	"time"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

// Processor applies index requests to the index. Satisfied by the indexing
// pipeline; narrowed here so drain strategies can be tested in isolation.
type Processor interface {
	Process(req *domain.IndexRequest) error
	Flush()
}

// ParallelIndexer drains the queue one request per cycle. Any number of
// ParallelIndexer cycles may run concurrently: the atomic claim in the
// store guarantees each request is applied by exactly one of them.
type ParallelIndexer struct {
	queue   *Queue
	proc    Processor
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewParallelIndexer(q *Queue, proc Processor, m *metrics.Metrics, log *slog.Logger) *ParallelIndexer {
	return &ParallelIndexer{
		queue:   q,
		proc:    proc,
		metrics: m,
		log:     log.With("component", "indexer", "strategy", "parallel"),
	}
}

// Cycle claims and applies at most one request. A failed apply leaves the
// request LOCKED as a dead letter for inspection; it is never retried.
func (x *ParallelIndexer) Cycle() {
	start := time.Now()

	req, ok := x.queue.ClaimNext()
	if !ok {
		x.metrics.ObserveCycle("parallel", "idle", start)
		return
	}

	if err := x.proc.Process(req); err != nil {
		x.metrics.IndexErrorsTotal.WithLabelValues(string(req.Operation)).Inc()
		x.metrics.ObserveCycle("parallel", "error", start)
		x.log.Error("index request failed, left locked",
			"request", req, "error", err)
		return
	}

	// Commit before dropping the request so a crash between the two at
	// worst re-applies an idempotent mutation.
	x.proc.Flush()
	x.queue.Purge(req)
	x.metrics.IndexedTotal.WithLabelValues(string(req.Operation)).Inc()
	x.metrics.ObserveCycle("parallel", "ok", start)
	x.log.Debug("index request applied", "request", req)
}
