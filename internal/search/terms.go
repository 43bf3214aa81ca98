package search

import (
	"context"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
)

// TermLimit caps how many terms a term-frequency query returns.
const TermLimit = 50

// Terms returns the analyzed terms of one indexed document. The TermLimit
// most frequent terms are selected (frequency ties broken alphabetically)
// and the selection is returned in term-text order. A path that is not
// indexed in any shard yields an empty term list.
func (e *Engine) Terms(ctx context.Context, req *domain.TermsRequest) (domain.TermsResponse, error) {
	if !req.Valid() {
		return domain.TermsResponse{Terms: []domain.ContentTerm{}}, errs.InvalidRequest("empty path")
	}
	e.metrics.TermsQueryTotal.Inc()

	composite, err := e.registry.CompositeFor(nil)
	if err != nil {
		return domain.TermsResponse{Terms: []domain.ContentTerm{}}, err
	}
	defer composite.Release()

	freqs, found, err := composite.DocTerms(ctx, req.Path)
	if err != nil {
		return domain.TermsResponse{Terms: []domain.ContentTerm{}}, errs.SearchIO(err)
	}
	if !found {
		return domain.TermsResponse{Terms: []domain.ContentTerm{}}, nil
	}

	terms := make([]domain.ContentTerm, 0, len(freqs))
	for text, freq := range freqs {
		terms = append(terms, domain.ContentTerm{Text: text, Frequency: freq})
	}
	// Frequency ranking picks which terms survive the cap; the surviving
	// set is presented in its deterministic text order.
	domain.RankTerms(terms)
	if len(terms) > TermLimit {
		terms = terms[:TermLimit]
	}
	domain.SortTerms(terms)
	return domain.TermsResponse{Terms: terms}, nil
}
