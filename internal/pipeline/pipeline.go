// Package pipeline turns index requests into shard mutations: it validates
// the request, resolves the content's language, extracts the file's text
// and stages the add, update or delete on the matching index shard.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/extract"
	"github.com/Aman-CERP/fulltextd/internal/index"
	"github.com/Aman-CERP/fulltextd/internal/language"
)

type Pipeline struct {
	registry  *index.Registry
	detector  language.Detector
	extractor extract.Extractor
	log       *slog.Logger
}

func New(registry *index.Registry, detector language.Detector, extractor extract.Extractor, log *slog.Logger) *Pipeline {
	return &Pipeline{
		registry:  registry,
		detector:  detector,
		extractor: extractor,
		log:       log.With("component", "pipeline"),
	}
}

// Process stages one index request on its shard. Changes become visible to
// searches only after Flush.
func (p *Pipeline) Process(req *domain.IndexRequest) error {
	if req == nil {
		return errs.InvalidRequest("nil index request")
	}
	if req.Content == nil {
		return errs.NullContent()
	}
	if !req.Valid() {
		return errs.InvalidRequest(req.String())
	}

	content := req.Content
	switch req.Operation {
	case domain.OpAdd, domain.OpUpdate:
		return p.stageWrite(content, req.Operation)
	case domain.OpDelete:
		return p.stageDelete(content)
	default:
		return errs.InvalidRequest(fmt.Sprintf("unsupported operation %q", req.Operation))
	}
}

// Flush commits all staged changes, making them searchable.
func (p *Pipeline) Flush() {
	p.registry.CommitAll()
}

func (p *Pipeline) stageWrite(content *domain.Content, op domain.Operation) error {
	info, err := os.Stat(content.Path)
	if err != nil {
		return errs.IndexingIO(err)
	}
	if info.IsDir() {
		return errs.ContentNotFile(content.Path)
	}

	lang := p.resolveLanguage(content)
	text, err := p.extractor.FullText(content.Path)
	if err != nil {
		return err
	}

	shard, err := p.registry.WriterFor(lang)
	if err != nil {
		return err
	}

	staged := &domain.Content{ID: content.ID, Path: content.Path, Language: lang}
	if op == domain.OpAdd {
		err = shard.Add(staged, text)
	} else {
		err = shard.Update(staged, text)
	}
	if err != nil {
		return errs.IndexingIO(err)
	}

	p.log.Debug("staged content",
		"operation", string(op),
		"path", content.Path,
		"language", lang)
	return nil
}

// stageDelete removes the path from its language shard, or from every shard
// on disk when the request does not carry a language. Deletes of unindexed
// paths are no-ops in either case.
func (p *Pipeline) stageDelete(content *domain.Content) error {
	if analysis.Known(content.Language) {
		shard, err := p.registry.WriterFor(content.Language)
		if err != nil {
			return err
		}
		if err := shard.Delete(content.Path); err != nil {
			return errs.IndexingIO(err)
		}
		return nil
	}

	languages, err := p.registry.Languages()
	if err != nil {
		return errs.IndexingIO(err)
	}
	for _, lang := range languages {
		shard, err := p.registry.WriterFor(lang)
		if err != nil {
			return err
		}
		if err := shard.Delete(content.Path); err != nil {
			return errs.IndexingIO(err)
		}
	}
	return nil
}

// resolveLanguage prefers the language carried on the content; otherwise it
// detects one from a bounded sample of the file. An unreadable sample routes
// the content to the unknown shard rather than failing the request.
func (p *Pipeline) resolveLanguage(content *domain.Content) string {
	if analysis.Known(content.Language) {
		return analysis.Normalize(content.Language)
	}
	sample, err := p.extractor.Sample(content.Path)
	if err != nil {
		p.log.Warn("language sample unreadable", "path", content.Path, "error", err)
		return analysis.Unknown
	}
	return p.detector.Detect(sample)
}
