package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	"github.com/Aman-CERP/fulltextd/internal/extract"
	"github.com/Aman-CERP/fulltextd/internal/index"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
	"github.com/Aman-CERP/fulltextd/internal/pipeline"
	"github.com/Aman-CERP/fulltextd/internal/queue"
	"github.com/Aman-CERP/fulltextd/internal/search"
)

type fixedDetector struct{}

func (fixedDetector) Detect(string) string { return "en" }

type testEnv struct {
	server *Server
	queue  *queue.Queue
	serial *queue.SerialIndexer
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.Default()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	reg, err := index.NewRegistry(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	store, err := queue.NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	q := queue.New(store, m, log)
	pipe := pipeline.New(reg, fixedDetector{}, extract.NewPlainText(), log)
	engine := search.NewEngine(reg, fixedDetector{}, m, log)

	return &testEnv{
		server: New(q, engine, m, registry, log),
		queue:  q,
		serial: queue.NewSerialIndexer(q, pipe, m, log),
		dir:    t.TempDir(),
	}
}

func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestServer_EnqueueAccepted(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "a.txt", "hello")

	rec := env.post(t, "/api/v1/queue", domain.IndexRequest{
		Content:   &domain.Content{ID: "1", Path: path},
		Operation: domain.OpAdd,
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp domain.IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, env.queue.Depth(domain.StatusQueued))
}

func TestServer_EnqueueRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/v1/queue", domain.IndexRequest{Operation: domain.OpAdd})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_QueueThenSearchRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "a.txt", "searchable round trip body")

	rec := env.post(t, "/api/v1/queue", domain.IndexRequest{
		Content:   &domain.Content{ID: "1", Path: path},
		Operation: domain.OpAdd,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Queued content is not searchable until an indexer cycle ran.
	env.serial.Cycle()

	rec = env.post(t, "/api/v1/search", domain.SearchRequest{Query: "searchable"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, path, resp.Matches[0].Path)
}

func TestServer_SearchDegradesToEmptyResponse(t *testing.T) {
	env := newTestEnv(t)

	// No shards exist yet; the failure must not leak to the client.
	rec := env.post(t, "/api/v1/search", domain.SearchRequest{Query: "anything"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Matches)
	assert.Empty(t, resp.Deep)
}

func TestServer_SearchRejectsEmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/v1/search", domain.SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Terms(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "cat.txt", "the cat sat on the mat the cat ran")

	env.post(t, "/api/v1/queue", domain.IndexRequest{
		Content:   &domain.Content{ID: "1", Path: path},
		Operation: domain.OpAdd,
	})
	env.serial.Cycle()

	rec := env.post(t, "/api/v1/terms", domain.TermsRequest{Path: path})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.TermsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Terms)
	assert.Equal(t, "cat", resp.Terms[0].Text)
	assert.Equal(t, 2, resp.Terms[0].Frequency)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fulltextd_queue_depth")
}
