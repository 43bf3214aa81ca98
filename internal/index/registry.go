package index

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
)

// compositeCacheSize bounds the number of cached multi-shard readers.
const compositeCacheSize = 32

// Registry owns one writer and one reader per language shard plus composite
// readers over language sets. It is an explicit, injectable object shared by
// the indexing pipeline and the search engine.
//
// The registry synchronizes handle creation and cache insertion; the handles
// themselves are safe for concurrent use once obtained.
type Registry struct {
	root string
	log  *slog.Logger

	mu         sync.Mutex
	shards     map[string]*Shard
	readers    map[string]*Reader
	composites *lru.Cache[string, *CompositeReader]
}

// NewRegistry creates a registry rooted at the given index directory,
// creating it if needed.
func NewRegistry(root string, log *slog.Logger) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create index root %s: %w", root, err)
	}
	r := &Registry{
		root:    root,
		log:     log,
		shards:  make(map[string]*Shard),
		readers: make(map[string]*Reader),
	}
	// Evicted composites drop the cache reference; member snapshots close
	// once in-flight searches release them.
	cache, err := lru.NewWithEvict(compositeCacheSize, func(_ string, c *CompositeReader) {
		c.Release()
	})
	if err != nil {
		return nil, err
	}
	r.composites = cache
	return r, nil
}

// Root returns the index root directory.
func (g *Registry) Root() string { return g.root }

// WriterFor returns the cached writer for the language, opening or creating
// the shard on first access. Unknown or unmapped tags route to the unknown
// shard.
func (g *Registry) WriterFor(language string) (*Shard, error) {
	language = analysis.Normalize(language)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shardLocked(language, true)
}

func (g *Registry) shardLocked(language string, create bool) (*Shard, error) {
	if s, ok := g.shards[language]; ok {
		return s, nil
	}
	s, err := openShard(g.root, language, create)
	if err != nil {
		return nil, err
	}
	g.shards[language] = s
	return s, nil
}

// CommitAll commits pending changes on every open shard. A commit failure on
// one shard is logged and does not abort commits of the others.
func (g *Registry) CommitAll() {
	g.mu.Lock()
	shards := make([]*Shard, 0, len(g.shards))
	for _, s := range g.shards {
		shards = append(shards, s)
	}
	g.mu.Unlock()

	for _, s := range shards {
		if err := s.Commit(); err != nil {
			g.log.Error("shard commit failed",
				slog.String("language", s.Language()),
				slog.String("error", err.Error()))
		}
	}
}

// ReaderFor returns a fresh reader for the language shard, reusing the
// cached snapshot while the shard is unchanged. A stale snapshot is swapped
// atomically for a reopened one; the old snapshot stays alive until its last
// in-flight holder releases it. A missing shard is a NoIndex error.
func (g *Registry) ReaderFor(language string) (*Reader, error) {
	language = analysis.Normalize(language)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readerLocked(language)
}

func (g *Registry) readerLocked(language string) (*Reader, error) {
	shard, err := g.shardLocked(language, false)
	if err != nil {
		return nil, err
	}

	cached, ok := g.readers[language]
	if ok && cached.generation == shard.Generation() {
		return cached.acquire(), nil
	}

	snapshot, gen, err := shard.Snapshot()
	if err != nil {
		return nil, err
	}
	fresh := newReader(language, snapshot, gen)
	g.readers[language] = fresh
	if ok {
		// Retire the stale reader by dropping the cache reference only;
		// closing happens when concurrent searches are done with it.
		cached.Release()
	}
	return fresh.acquire(), nil
}

// CompositeFor returns a unified reader over the given language set. An
// empty set means every shard discovered on disk. The composite is cached
// under the sorted, joined language key and rebuilt when any member shard
// moved generation.
func (g *Registry) CompositeFor(languages []string) (*CompositeReader, error) {
	if len(languages) == 0 {
		discovered, err := g.Languages()
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			return nil, errs.New(errs.CodeNoIndex, errs.CategorySearch, "no index shards on disk")
		}
		languages = discovered
	}

	normalized := normalizeSet(languages)
	key := strings.Join(normalized, "_")

	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.composites.Get(key); ok && g.freshLocked(cached) {
		return cached.acquire(), nil
	}

	members := make([]*Reader, 0, len(normalized))
	for _, lang := range normalized {
		member, err := g.readerLocked(lang)
		if err != nil {
			for _, acquired := range members {
				acquired.Release()
			}
			return nil, err
		}
		members = append(members, member)
	}

	composite := newComposite(key, members)
	// Remove before Add: Remove runs the evict hook that releases a stale
	// generation, a plain Add would silently drop it.
	g.composites.Remove(key)
	g.composites.Add(key, composite)
	return composite.acquire(), nil
}

func (g *Registry) freshLocked(c *CompositeReader) bool {
	for _, member := range c.members {
		shard, ok := g.shards[member.language]
		if !ok || member.generation != shard.Generation() {
			return false
		}
	}
	return true
}

// Languages discovers the set of shard directories under the index root.
func (g *Registry) Languages() ([]string, error) {
	entries, err := os.ReadDir(g.root)
	if err != nil {
		return nil, fmt.Errorf("read index root %s: %w", g.root, err)
	}
	langs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			langs = append(langs, entry.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// Close retires all cached readers and composites and closes every shard.
func (g *Registry) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.composites.Purge()
	for lang, reader := range g.readers {
		reader.Release()
		delete(g.readers, lang)
	}

	var firstErr error
	for lang, shard := range g.shards {
		if err := shard.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.shards, lang)
	}
	return firstErr
}

func normalizeSet(languages []string) []string {
	seen := make(map[string]struct{}, len(languages))
	normalized := make([]string, 0, len(languages))
	for _, lang := range languages {
		n := analysis.Normalize(lang)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)
	return normalized
}
