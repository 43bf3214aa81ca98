package index

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
)

// CompositeReader is a unified read view spanning several shard readers,
// used for multi-language queries. Members are acquired at build time and
// released together when the composite's last reference is dropped.
type CompositeReader struct {
	key     string
	members []*Reader
	refs    atomic.Int32
}

func newComposite(key string, members []*Reader) *CompositeReader {
	c := &CompositeReader{key: key, members: members}
	c.refs.Store(1) // the registry cache reference
	return c
}

func (c *CompositeReader) acquire() *CompositeReader {
	c.refs.Add(1)
	return c
}

// Release drops one reference; the last drop releases every member reader.
func (c *CompositeReader) Release() {
	if c.refs.Add(-1) == 0 {
		for _, m := range c.members {
			m.Release()
		}
	}
}

// Key returns the deterministic cache key of the member set.
func (c *CompositeReader) Key() string { return c.key }

// TopMatches runs the ranked search on every member and merges the per-shard
// rankings by (score desc, doc ID asc), the same global order a cursor
// resumes in. Passing the cursor down to each member is sound because a
// document sorts after the cursor globally exactly when it does within its
// own shard.
//
// With several members, query terms are analyzed once with the generic
// analyzer for every shard. A single analysis chain cannot match each
// shard's index-time analysis, so multi-language matching may lose stemmed
// forms. A composite of one member keeps its language analyzer.
func (c *CompositeReader) TopMatches(ctx context.Context, q query.Query, after *domain.DeepPage, size int) ([]*Hit, uint64, error) {
	if len(c.members) == 1 {
		return c.members[0].TopMatches(ctx, q, after, size)
	}
	fallback := analysis.SearchMapping(analysis.Unknown)

	var (
		hits  []*Hit
		total uint64
	)
	for _, member := range c.members {
		memberHits, memberTotal, err := member.topMatches(ctx, q, fallback, after, size)
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, memberHits...)
		total += memberTotal
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, total, nil
}

// DocTerms looks the document up in each member; paths are unique across
// shards so the first hit wins.
func (c *CompositeReader) DocTerms(ctx context.Context, docID string) (map[string]int, bool, error) {
	for _, member := range c.members {
		freqs, found, err := member.DocTerms(ctx, docID)
		if err != nil {
			return nil, false, err
		}
		if found {
			return freqs, true, nil
		}
	}
	return nil, false, nil
}
