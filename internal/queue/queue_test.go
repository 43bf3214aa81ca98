package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestQueue(t *testing.T) (*Queue, *SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	m := metrics.New(prometheus.NewRegistry())
	return New(store, m, slog.Default()), store
}

func request(n int) *domain.IndexRequest {
	return &domain.IndexRequest{
		Content:   &domain.Content{ID: fmt.Sprintf("%d", n), Path: fmt.Sprintf("/docs/%d.txt", n)},
		Operation: domain.OpAdd,
	}
}

func TestSQLiteStore_InsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	req := request(1)
	require.NoError(t, store.Insert(req))
	require.NoError(t, store.Insert(req))

	n, err := store.CountByStatus(domain.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ClaimOneQueued_OldestFirst(t *testing.T) {
	store := newTestStore(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Insert(request(i)))
	}

	for i := 1; i <= 3; i++ {
		req, ok, err := store.ClaimOneQueued()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("%d", i), req.Content.ID)
		assert.Equal(t, domain.StatusLocked, req.Status)
	}

	_, ok, err := store.ClaimOneQueued()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ClaimOneQueued_NeverDoubleClaims(t *testing.T) {
	store := newTestStore(t)
	const total = 40
	for i := 0; i < total; i++ {
		require.NoError(t, store.Insert(request(i)))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				req, ok, err := store.ClaimOneQueued()
				if err != nil || !ok {
					return
				}
				mu.Lock()
				seen[req.Content.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "request %s claimed %d times", id, count)
	}
}

func TestSQLiteStore_ListByStatus_PagedInEnqueueOrder(t *testing.T) {
	store := newTestStore(t)
	const total = PageSize + 20
	for i := 0; i < total; i++ {
		require.NoError(t, store.Insert(request(i)))
	}
	_, err := store.RelockAllQueued()
	require.NoError(t, err)

	page0, err := store.ListByStatus(domain.StatusLocked, 0)
	require.NoError(t, err)
	require.Len(t, page0, PageSize)
	assert.Equal(t, "0", page0[0].Content.ID)

	page1, err := store.ListByStatus(domain.StatusLocked, 1)
	require.NoError(t, err)
	require.Len(t, page1, 20)
	assert.Equal(t, fmt.Sprintf("%d", PageSize), page1[0].Content.ID)
}

func TestSQLiteStore_StatusLifecycle(t *testing.T) {
	store := newTestStore(t)
	req := request(1)
	require.NoError(t, store.Insert(req))

	require.NoError(t, store.MarkStatus(req, domain.StatusConsumed))
	n, err := store.CountByStatus(domain.StatusConsumed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	purged, err := store.DeleteByStatus(domain.StatusConsumed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func TestQueue_Enqueue_Validation(t *testing.T) {
	q, _ := newTestQueue(t)

	err := q.Enqueue(nil)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidRequest))

	err = q.Enqueue(&domain.IndexRequest{Operation: domain.OpAdd})
	assert.True(t, errs.IsCode(err, errs.CodeNullContent))

	err = q.Enqueue(&domain.IndexRequest{
		Content:   &domain.Content{ID: "1", Path: "/p"},
		Operation: "MOVE",
	})
	assert.True(t, errs.IsCode(err, errs.CodeInvalidRequest))

	require.NoError(t, q.Enqueue(request(1)))
	assert.Equal(t, 1, q.Depth(domain.StatusQueued))
}

// recordingProcessor applies requests in memory and fails the ones marked bad.
type recordingProcessor struct {
	mu      sync.Mutex
	applied []string
	flushes int
	bad     map[string]bool
}

func (p *recordingProcessor) Process(req *domain.IndexRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bad[req.Content.ID] {
		return errors.New("boom")
	}
	p.applied = append(p.applied, req.Content.ID)
	return nil
}

func (p *recordingProcessor) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
}

func TestParallelIndexer_Cycle(t *testing.T) {
	q, store := newTestQueue(t)
	m := metrics.New(prometheus.NewRegistry())
	proc := &recordingProcessor{bad: map[string]bool{"2": true}}
	ix := NewParallelIndexer(q, proc, m, slog.Default())

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(request(i)))
	}

	for i := 0; i < 4; i++ {
		ix.Cycle()
	}

	assert.Equal(t, []string{"1", "3"}, proc.applied)
	// The failed request stays behind as a LOCKED dead letter.
	locked, err := store.CountByStatus(domain.StatusLocked)
	require.NoError(t, err)
	assert.Equal(t, 1, locked)
	assert.Equal(t, 0, q.Depth(domain.StatusQueued))
}

func TestSerialIndexer_Cycle_SingleSweep(t *testing.T) {
	q, store := newTestQueue(t)
	m := metrics.New(prometheus.NewRegistry())
	proc := &recordingProcessor{bad: map[string]bool{"2": true}}
	ix := NewSerialIndexer(q, proc, m, slog.Default())

	const total = PageSize + 5
	for i := 0; i < total; i++ {
		require.NoError(t, q.Enqueue(request(i)))
	}

	ix.Cycle()

	assert.Len(t, proc.applied, total-1)
	assert.Equal(t, 1, proc.flushes)

	// Consumed requests are purged; the failure stays LOCKED.
	locked, err := store.CountByStatus(domain.StatusLocked)
	require.NoError(t, err)
	assert.Equal(t, 1, locked)
	consumed, err := store.CountByStatus(domain.StatusConsumed)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
}

// flushOrderProcessor snapshots the CONSUMED count at flush time.
type flushOrderProcessor struct {
	store           Store
	consumedAtFlush int
}

func (p *flushOrderProcessor) Process(*domain.IndexRequest) error { return nil }

func (p *flushOrderProcessor) Flush() {
	n, err := p.store.CountByStatus(domain.StatusConsumed)
	if err == nil {
		p.consumedAtFlush = n
	}
}

func TestSerialIndexer_Cycle_FlushesBeforeConsuming(t *testing.T) {
	q, store := newTestQueue(t)
	m := metrics.New(prometheus.NewRegistry())
	proc := &flushOrderProcessor{store: store, consumedAtFlush: -1}
	ix := NewSerialIndexer(q, proc, m, slog.Default())

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(request(i)))
	}

	ix.Cycle()

	// A row marked CONSUMED before the commit would be purged even when a
	// crash loses the staged mutation, so nothing may be consumed until
	// the flush has run.
	assert.Equal(t, 0, proc.consumedAtFlush)
	assert.Equal(t, 0, q.Depth(domain.StatusLocked))
	assert.Equal(t, 0, q.Depth(domain.StatusConsumed))
}

func TestSerialIndexer_Cycle_RetriesDeadLetters(t *testing.T) {
	q, store := newTestQueue(t)
	m := metrics.New(prometheus.NewRegistry())
	proc := &recordingProcessor{bad: map[string]bool{"1": true}}
	ix := NewSerialIndexer(q, proc, m, slog.Default())

	require.NoError(t, q.Enqueue(request(1)))
	ix.Cycle()
	locked, err := store.CountByStatus(domain.StatusLocked)
	require.NoError(t, err)
	require.Equal(t, 1, locked)

	// Next sweep re-lists the dead letter; once the cause clears it drains.
	proc.bad = nil
	ix.Cycle()
	assert.Equal(t, []string{"1"}, proc.applied)
	locked, err = store.CountByStatus(domain.StatusLocked)
	require.NoError(t, err)
	assert.Equal(t, 0, locked)
}

func TestSerialIndexer_BusyLatchSkipsOverlappingCycles(t *testing.T) {
	q, _ := newTestQueue(t)
	m := metrics.New(prometheus.NewRegistry())

	entered := make(chan struct{})
	release := make(chan struct{})
	proc := &blockingProcessor{entered: entered, release: release}
	ix := NewSerialIndexer(q, proc, m, slog.Default())

	require.NoError(t, q.Enqueue(request(1)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ix.Cycle()
	}()
	<-entered
	assert.True(t, ix.Busy())

	// An overlapping cycle must return without touching the backlog.
	ix.Cycle()
	assert.Equal(t, 1, proc.calls())

	close(release)
	<-done
	assert.False(t, ix.Busy())
}

type blockingProcessor struct {
	mu      sync.Mutex
	n       int
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) Process(*domain.IndexRequest) error {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return nil
}

func (p *blockingProcessor) Flush() {}

func (p *blockingProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
