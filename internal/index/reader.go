package index

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/collector"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
)

// Hit is one ranked match with its stored fields.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// ReaderHandle is a point-in-time read view over one or more shards. Handles
// are reference counted: callers must Release when done, and the underlying
// snapshot is reclaimed only after the registry has retired it and the last
// holder has released it. A handle never observes a closed snapshot.
type ReaderHandle interface {
	// TopMatches runs a ranked search. A non-nil after cursor resumes
	// strictly after the (doc, score) position. It returns up to size hits
	// and the exact total of matching documents. A single-shard handle
	// analyzes query terms with the shard's language analyzer; a composite
	// over several shards falls back to the generic analyzer for all of
	// them, which may degrade matching for languages whose index-time
	// analysis differed.
	TopMatches(ctx context.Context, q query.Query, after *domain.DeepPage, size int) ([]*Hit, uint64, error)

	// DocTerms returns the term frequencies of the contents field for the
	// document with the given external ID, reporting whether it was found.
	DocTerms(ctx context.Context, docID string) (map[string]int, bool, error)

	// Release drops the caller's reference.
	Release()
}

// Ranking is score descending with the document ID as tiebreaker, the order
// the deep-pagination cursor resumes in.
var searchSort = search.ParseSortOrderStrings([]string{"-_score", "_id"})

// Reader is a refcounted snapshot of a single shard. It carries the shard's
// search mapping so queries are analyzed the same way the shard was indexed.
type Reader struct {
	language   string
	generation uint64
	snapshot   index.IndexReader
	mapping    mapping.IndexMapping
	refs       atomic.Int32
}

func newReader(language string, snapshot index.IndexReader, generation uint64) *Reader {
	r := &Reader{
		language:   language,
		generation: generation,
		snapshot:   snapshot,
		mapping:    analysis.SearchMapping(language),
	}
	r.refs.Store(1) // the registry cache reference
	return r
}

func (r *Reader) acquire() *Reader {
	r.refs.Add(1)
	return r
}

// Release drops one reference and closes the snapshot when the last holder
// is gone.
func (r *Reader) Release() {
	if r.refs.Add(-1) == 0 {
		_ = r.snapshot.Close()
	}
}

// Language returns the shard language of the reader.
func (r *Reader) Language() string { return r.language }

// TopMatches implements ReaderHandle over the single shard snapshot.
func (r *Reader) TopMatches(ctx context.Context, q query.Query, after *domain.DeepPage, size int) ([]*Hit, uint64, error) {
	return r.topMatches(ctx, q, r.mapping, after, size)
}

func (r *Reader) topMatches(ctx context.Context, q query.Query, m mapping.IndexMapping, after *domain.DeepPage, size int) ([]*Hit, uint64, error) {
	searcher, err := q.Searcher(ctx, r.snapshot, m, search.SearcherOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("build searcher: %w", err)
	}
	defer func() { _ = searcher.Close() }()

	var coll *collector.TopNCollector
	if after == nil {
		coll = collector.NewTopNCollector(size, 0, searchSort)
	} else {
		coll = collector.NewTopNCollectorAfter(size, searchSort, []string{
			strconv.FormatFloat(after.Score, 'f', -1, 64),
			after.Doc,
		})
	}

	if err := coll.Collect(ctx, searcher, r.snapshot); err != nil {
		return nil, 0, fmt.Errorf("collect: %w", err)
	}

	matches := coll.Results()
	hits := make([]*Hit, 0, len(matches))
	for _, match := range matches {
		fields, err := storedFields(r.snapshot, match.ID)
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, &Hit{ID: match.ID, Score: match.Score, Fields: fields})
	}
	return hits, coll.Total(), nil
}

// DocTerms walks the contents field dictionary and sums the within-document
// frequency of every term posted against the document. The dictionary walk
// trades speed for using only committed postings; the result is capped by
// the caller.
func (r *Reader) DocTerms(ctx context.Context, docID string) (map[string]int, bool, error) {
	internalID, err := r.snapshot.InternalID(docID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve document %s: %w", docID, err)
	}
	if internalID == nil {
		return nil, false, nil
	}

	dict, err := r.snapshot.FieldDict(analysis.FieldContents)
	if err != nil {
		return nil, false, fmt.Errorf("field dictionary: %w", err)
	}
	defer func() { _ = dict.Close() }()

	freqs := make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, false, fmt.Errorf("dictionary next: %w", err)
		}
		if entry == nil {
			break
		}
		freq, err := r.termFreq(ctx, entry.Term, internalID)
		if err != nil {
			return nil, false, err
		}
		if freq > 0 {
			freqs[entry.Term] += freq
		}
	}
	return freqs, true, nil
}

func (r *Reader) termFreq(ctx context.Context, term string, internalID index.IndexInternalID) (int, error) {
	tfr, err := r.snapshot.TermFieldReader(ctx, []byte(term), analysis.FieldContents, true, false, false)
	if err != nil {
		return 0, fmt.Errorf("term reader %q: %w", term, err)
	}
	defer func() { _ = tfr.Close() }()

	tfd, err := tfr.Advance(internalID, nil)
	if err != nil {
		return 0, fmt.Errorf("advance term %q: %w", term, err)
	}
	if tfd == nil || !tfd.ID.Equals(internalID) {
		return 0, nil
	}
	return int(tfd.Freq), nil
}

// storedFields loads the stored id, path and language fields of a document.
func storedFields(reader index.IndexReader, id string) (map[string]string, error) {
	doc, err := reader.Document(id)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	fields := make(map[string]string, 3)
	if doc == nil {
		return fields, nil
	}
	doc.VisitFields(func(f index.Field) {
		switch f.Name() {
		case analysis.FieldID, analysis.FieldPath, analysis.FieldLanguage:
			fields[f.Name()] = string(f.Value())
		}
	})
	return fields, nil
}
