package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/index"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
)

type stubDetector struct{ lang string }

func (d stubDetector) Detect(string) string { return d.lang }

func newEngine(t *testing.T, detected string) (*Engine, *index.Registry) {
	t.Helper()
	reg, err := index.NewRegistry(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	m := metrics.New(prometheus.NewRegistry())
	return NewEngine(reg, stubDetector{lang: detected}, m, slog.Default()), reg
}

func indexDoc(t *testing.T, reg *index.Registry, lang, id, path, text string) {
	t.Helper()
	shard, err := reg.WriterFor(lang)
	require.NoError(t, err)
	require.NoError(t, shard.Add(&domain.Content{ID: id, Path: path, Language: lang}, text))
	reg.CommitAll()
}

func TestEngine_Search_SinglePage(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	indexDoc(t, reg, "en", "1", "/docs/a.txt", "grace hopper wrote the first compiler")

	resp, err := engine.Search(context.Background(), &domain.SearchRequest{Query: "compiler"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "1", resp.Matches[0].ID)
	assert.Equal(t, "/docs/a.txt", resp.Matches[0].Path)
	assert.Equal(t, "en", resp.Matches[0].Language)
	assert.Empty(t, resp.Deep)
}

func TestEngine_Search_DeepPaginationWalk(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	const total = 25
	for i := 0; i < total; i++ {
		indexDoc(t, reg, "en", fmt.Sprintf("%d", i),
			fmt.Sprintf("/docs/%02d.txt", i), "identical searchable body")
	}

	seen := make(map[string]bool)
	cursor := ""
	pageSizes := []int{}
	for page := 0; page < 5; page++ {
		resp, err := engine.Search(context.Background(), &domain.SearchRequest{
			Query:     "searchable",
			Languages: []string{"en"},
			Deep:      cursor,
		})
		require.NoError(t, err)
		assert.Equal(t, total, resp.Total)
		pageSizes = append(pageSizes, len(resp.Matches))

		for _, match := range resp.Matches {
			assert.Falsef(t, seen[match.Path], "path %s returned twice", match.Path)
			seen[match.Path] = true
		}
		cursor = resp.Deep
		if cursor == "" {
			break
		}
	}

	assert.Equal(t, []int{10, 10, 5}, pageSizes)
	assert.Len(t, seen, total)
}

func TestEngine_Search_MalformedCursorStartsOver(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	indexDoc(t, reg, "en", "1", "/docs/a.txt", "hello world")

	resp, err := engine.Search(context.Background(), &domain.SearchRequest{
		Query: "hello",
		Deep:  "not a cursor",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
}

func TestEngine_Search_ExplicitLanguagesWinOverDetection(t *testing.T) {
	engine, reg := newEngine(t, "en")
	indexDoc(t, reg, "en", "1", "/docs/en.txt", "castle history")
	indexDoc(t, reg, "fr", "2", "/docs/fr.txt", "castle chronique")

	resp, err := engine.Search(context.Background(), &domain.SearchRequest{
		Query:          "castle",
		DetectLanguage: true,
		Languages:      []string{"fr"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "/docs/fr.txt", resp.Matches[0].Path)
}

func TestEngine_Search_DetectionRoutesToOneShard(t *testing.T) {
	engine, reg := newEngine(t, "en")
	indexDoc(t, reg, "en", "1", "/docs/en.txt", "castle history")
	indexDoc(t, reg, "fr", "2", "/docs/fr.txt", "castle chronique")

	resp, err := engine.Search(context.Background(), &domain.SearchRequest{
		Query:          "castle",
		DetectLanguage: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "/docs/en.txt", resp.Matches[0].Path)
}

func TestEngine_Search_NoFilterSearchesAllShards(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	// A multi-shard search analyzes the query with the generic fallback
	// chain, so the fixture term must survive each shard's stemmer intact.
	indexDoc(t, reg, "en", "1", "/docs/en.txt", "dragon history")
	indexDoc(t, reg, "fr", "2", "/docs/fr.txt", "dragon chronique")

	resp, err := engine.Search(context.Background(), &domain.SearchRequest{Query: "dragon"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Matches, 2)
}

func TestEngine_Search_Errors(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)

	_, err := engine.Search(context.Background(), &domain.SearchRequest{})
	assert.True(t, errs.IsCode(err, errs.CodeInvalidRequest))

	_, err = engine.Search(context.Background(), &domain.SearchRequest{Query: "anything"})
	assert.True(t, errs.IsCode(err, errs.CodeNoIndex))

	indexDoc(t, reg, "en", "1", "/docs/a.txt", "hello")
	_, err = engine.Search(context.Background(), &domain.SearchRequest{Query: `"unclosed`})
	assert.True(t, errs.IsCode(err, errs.CodeQueryParse))
}

func TestEngine_nextCursor_SuppressesStagnantCursor(t *testing.T) {
	engine, _ := newEngine(t, analysis.Unknown)

	hits := make([]*index.Hit, PageSize)
	for i := range hits {
		hits[i] = &index.Hit{ID: fmt.Sprintf("/docs/%d.txt", i), Score: 1.5}
	}
	last := hits[PageSize-1]
	previous := domain.DeepPage{Doc: last.ID, Score: last.Score}.String()

	assert.Empty(t, engine.nextCursor(previous, hits))
	assert.Equal(t, previous, engine.nextCursor("", hits))
	assert.Empty(t, engine.nextCursor("", hits[:PageSize-1]))
}

func TestEngine_Terms_TextOrderedResponse(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	indexDoc(t, reg, analysis.Unknown, "1", "/docs/cat.txt", "red cat sat red mat red cat")

	resp, err := engine.Terms(context.Background(), &domain.TermsRequest{Path: "/docs/cat.txt"})
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentTerm{
		{Text: "cat", Frequency: 2},
		{Text: "mat", Frequency: 1},
		{Text: "red", Frequency: 3},
		{Text: "sat", Frequency: 1},
	}, resp.Terms)
}

func TestEngine_Terms_CapSelectsMostFrequent(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	body := strings.Repeat("zebra ", 5)
	for i := 0; i < TermLimit+25; i++ {
		body += fmt.Sprintf("term%03d ", i)
	}
	indexDoc(t, reg, analysis.Unknown, "1", "/docs/many.txt", body)

	resp, err := engine.Terms(context.Background(), &domain.TermsRequest{Path: "/docs/many.txt"})
	require.NoError(t, err)
	require.Len(t, resp.Terms, TermLimit)

	// The cap keeps the most frequent term even though it sorts last, and
	// the surviving set comes back in text order.
	found := false
	for i, term := range resp.Terms {
		if term.Text == "zebra" {
			assert.Equal(t, 5, term.Frequency)
			found = true
		}
		if i > 0 {
			assert.Less(t, resp.Terms[i-1].Text, term.Text)
		}
	}
	assert.True(t, found, "most frequent term was dropped by the cap")
}

func TestEngine_Terms_UnknownPathIsEmpty(t *testing.T) {
	engine, reg := newEngine(t, analysis.Unknown)
	indexDoc(t, reg, "en", "1", "/docs/a.txt", "hello")

	resp, err := engine.Terms(context.Background(), &domain.TermsRequest{Path: "/docs/missing.txt"})
	require.NoError(t, err)
	assert.Empty(t, resp.Terms)

	_, err = engine.Terms(context.Background(), &domain.TermsRequest{})
	assert.True(t, errs.IsCode(err, errs.CodeInvalidRequest))
}
