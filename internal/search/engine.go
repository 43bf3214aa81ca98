// Package search runs ranked full-text queries over the language shards and
// serves deep pagination via client-held cursors.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/index"
	"github.com/Aman-CERP/fulltextd/internal/language"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

// PageSize is the fixed number of matches per result page.
const PageSize = 10

// Engine resolves a search request to a set of language shards, parses the
// query and returns one ranked page of matches.
type Engine struct {
	registry *index.Registry
	detector language.Detector
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewEngine(registry *index.Registry, detector language.Detector, m *metrics.Metrics, log *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		detector: detector,
		metrics:  m,
		log:      log.With("component", "search"),
	}
}

// Search runs one page of a ranked query. An explicit language filter wins
// over detection; detection is attempted on the query text only when asked
// for; otherwise every shard on disk is searched. A malformed cursor is
// treated as a first page.
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (domain.SearchResponse, error) {
	start := time.Now()
	resp, err := e.search(ctx, req)
	e.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.SearchesTotal.WithLabelValues("error").Inc()
		return resp, err
	}
	e.metrics.SearchesTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

func (e *Engine) search(ctx context.Context, req *domain.SearchRequest) (domain.SearchResponse, error) {
	if !req.Valid() {
		return domain.EmptySearchResponse(), errs.InvalidRequest("empty query")
	}

	languages := e.resolveLanguages(req)

	var (
		reader index.ReaderHandle
		err    error
	)
	if len(languages) == 1 {
		reader, err = e.registry.ReaderFor(languages[0])
	} else {
		reader, err = e.registry.CompositeFor(languages)
	}
	if err != nil {
		return domain.EmptySearchResponse(), err
	}
	defer reader.Release()

	parsed, err := query.NewQueryStringQuery(req.Query).Parse()
	if err != nil {
		return domain.EmptySearchResponse(), errs.QueryParse(err)
	}

	after := domain.ParseDeepPage(req.Deep)
	hits, total, err := reader.TopMatches(ctx, parsed, after, PageSize)
	if err != nil {
		return domain.EmptySearchResponse(), errs.SearchIO(err)
	}

	matches := make([]domain.Content, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, domain.Content{
			ID:       hit.Fields[analysis.FieldID],
			Path:     hit.Fields[analysis.FieldPath],
			Language: hit.Fields[analysis.FieldLanguage],
		})
	}

	return domain.SearchResponse{
		Matches: matches,
		Total:   int(total),
		Deep:    e.nextCursor(req.Deep, hits),
	}, nil
}

// nextCursor derives the cursor for the following page. A short page means
// the result set is exhausted. A cursor identical to the one the client
// sent would loop forever, so it is suppressed.
func (e *Engine) nextCursor(previous string, hits []*index.Hit) string {
	if len(hits) < PageSize {
		return ""
	}
	last := hits[len(hits)-1]
	next := domain.DeepPage{Doc: last.ID, Score: last.Score}.String()
	if next == previous {
		e.log.Warn("pagination cursor did not advance, stopping", "cursor", next)
		return ""
	}
	return next
}

func (e *Engine) resolveLanguages(req *domain.SearchRequest) []string {
	if len(req.Languages) > 0 {
		return req.Languages
	}
	if req.DetectLanguage {
		if lang := e.detector.Detect(req.Query); lang != analysis.Unknown {
			return []string{lang}
		}
	}
	return nil
}
