// Package index owns the live writer and reader handles of the per-language
// index shards. It is the single source of truth for handle lifecycle:
// creation, caching, staleness detection, safe reopen and commits.
package index

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
)

// document is the indexed shape of a content. The external document ID is
// the content path, so updates and deletes address documents by exact path.
type document struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Contents string `json:"contents"`

	kind string
}

// Type routes the document to the add or update mapping; update documents
// index the id without storing it.
func (d document) Type() string { return d.kind }

// Shard is the writer handle of one language index. Mutations stage into a
// pending batch and become visible to readers only after Commit, which also
// advances the shard generation used for reader staleness checks.
//
// A Shard is safe for concurrent use by multiple callers without external
// locking.
type Shard struct {
	language string
	path     string
	idx      bleve.Index

	mu     sync.Mutex
	batch  *bleve.Batch
	staged int

	gen atomic.Uint64
}

// openShard opens or creates the shard for a normalized language tag under
// root. With create false a missing shard directory is a NoIndex error.
func openShard(root, language string, create bool) (*Shard, error) {
	path := filepath.Join(root, language)

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		if !create {
			return nil, errs.NoIndex(language)
		}
		idx, err = bleve.New(path, analysis.IndexMapping(language))
	}
	if err != nil {
		return nil, fmt.Errorf("open shard %s: %w", path, err)
	}

	return &Shard{language: language, path: path, idx: idx}, nil
}

// Language returns the normalized language tag of the shard.
func (s *Shard) Language() string { return s.language }

// Generation returns the commit generation. It moves only when a commit
// applies staged changes.
func (s *Shard) Generation() uint64 { return s.gen.Load() }

// Add stages a new document. All field values are computed by the caller
// before this point, so a failure here cannot leave a partial document.
func (s *Shard) Add(c *domain.Content, text string) error {
	return s.stage(document{
		kind:     analysis.DocKindAdd,
		ID:       c.ID,
		Path:     c.Path,
		Language: c.Language,
		Contents: text,
	})
}

// Update stages a replacement for any document whose path matches exactly.
// The id is indexed but not stored on the replacement.
func (s *Shard) Update(c *domain.Content, text string) error {
	return s.stage(document{
		kind:     analysis.DocKindUpdate,
		ID:       c.ID,
		Path:     c.Path,
		Language: c.Language,
		Contents: text,
	})
}

// Delete stages the removal of any document whose path matches exactly.
func (s *Shard) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureBatch()
	s.batch.Delete(path)
	s.staged++
	return nil
}

func (s *Shard) stage(doc document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureBatch()
	if err := s.batch.Index(doc.Path, doc); err != nil {
		return fmt.Errorf("stage document %s: %w", doc.Path, err)
	}
	s.staged++
	return nil
}

func (s *Shard) ensureBatch() {
	if s.batch == nil {
		s.batch = s.idx.NewBatch()
	}
}

// Commit applies all staged changes as one atomic batch and advances the
// generation. A commit with nothing staged is a no-op and does not disturb
// cached readers.
func (s *Shard) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == 0 {
		return nil
	}
	batch := s.batch
	s.batch = nil
	s.staged = 0
	if err := s.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit shard %s: %w", s.language, err)
	}
	s.gen.Add(1)
	return nil
}

// Snapshot opens a point-in-time reader over the committed state, tagged
// with the generation it was taken at. The caller owns closing it.
func (s *Shard) Snapshot() (index.IndexReader, uint64, error) {
	// Load the generation before taking the snapshot: a concurrent commit in
	// between makes the snapshot look stale, which only costs a reopen.
	gen := s.gen.Load()
	advanced, err := s.idx.Advanced()
	if err != nil {
		return nil, 0, fmt.Errorf("advanced index %s: %w", s.language, err)
	}
	snapshot, err := advanced.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot shard %s: %w", s.language, err)
	}
	return snapshot, gen, nil
}

// Close releases the underlying index handle. Staged, uncommitted changes
// are dropped.
func (s *Shard) Close() error {
	s.mu.Lock()
	s.batch = nil
	s.staged = 0
	s.mu.Unlock()
	return s.idx.Close()
}
