package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SearchRequest is a free-text query over one or more language shards.
type SearchRequest struct {
	// Query is the free-text query string. Field boosts and operators are
	// delegated to the index engine's query syntax.
	Query string `json:"query"`

	// DetectLanguage asks the engine to detect the query language when no
	// explicit language filter is given.
	DetectLanguage bool `json:"detectLanguage"`

	// Languages restricts the search to the given shards. Empty means all
	// known shards.
	Languages []string `json:"languages,omitempty"`

	// Deep is the serialized deep-pagination cursor from a previous
	// response, empty for the first page.
	Deep string `json:"deep,omitempty"`
}

// Valid reports whether the request carries a query.
func (r *SearchRequest) Valid() bool {
	return r != nil && r.Query != ""
}

// SearchResponse is one ranked page of matches.
type SearchResponse struct {
	Matches []Content `json:"matches"`
	Total   int       `json:"total"`
	// Deep is the cursor for the next page, empty when there is nothing
	// more to load.
	Deep string `json:"deep"`
}

// EmptySearchResponse is the degraded response returned at the boundary when
// a search fails.
func EmptySearchResponse() SearchResponse {
	return SearchResponse{Matches: []Content{}, Total: 0, Deep: ""}
}

// DeepPage marks the last emitted result of a ranked search so a subsequent
// search can resume strictly after it. It is client-held and never persisted.
type DeepPage struct {
	// Doc is the document identifier of the last hit.
	Doc string
	// Score is the ranking score of the last hit.
	Score float64
}

const deepDelimiter = ":"

// String serializes the cursor as "<doc>:<score>".
func (p DeepPage) String() string {
	return p.Doc + deepDelimiter + strconv.FormatFloat(p.Score, 'f', -1, 64)
}

// ParseDeepPage parses a serialized cursor. It returns nil for an empty or
// malformed value, which callers treat as "start from the top".
func ParseDeepPage(s string) *DeepPage {
	if s == "" {
		return nil
	}
	// The document identifier may itself contain the delimiter, so split on
	// the last occurrence.
	i := strings.LastIndex(s, deepDelimiter)
	if i <= 0 || i == len(s)-1 {
		return nil
	}
	score, err := strconv.ParseFloat(s[i+1:], 64)
	if err != nil {
		return nil
	}
	return &DeepPage{Doc: s[:i], Score: score}
}

// TermsRequest asks for the ranked term vector of a single indexed document.
type TermsRequest struct {
	Path string `json:"path"`
}

// Valid reports whether the request carries a path.
func (r *TermsRequest) Valid() bool {
	return r != nil && r.Path != ""
}

// ContentTerm is one term of a document with its in-document frequency.
type ContentTerm struct {
	Text      string `json:"text"`
	Frequency int    `json:"freq"`
}

// TermsResponse carries the ranked terms of a document.
type TermsResponse struct {
	Terms []ContentTerm `json:"terms"`
}

// RankTerms orders terms by descending frequency, ties broken by text, which
// is the ranking applied before truncating to the term limit.
func RankTerms(terms []ContentTerm) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Frequency != terms[j].Frequency {
			return terms[i].Frequency > terms[j].Frequency
		}
		return terms[i].Text < terms[j].Text
	})
}

// SortTerms orders terms by text, then frequency, the deterministic set
// ordering of the term domain.
func SortTerms(terms []ContentTerm) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Text != terms[j].Text {
			return terms[i].Text < terms[j].Text
		}
		return terms[i].Frequency < terms[j].Frequency
	})
}

// IndexResponse acknowledges an enqueue request.
type IndexResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r IndexResponse) String() string {
	return fmt.Sprintf("IndexResponse{success=%t message=%s}", r.Success, r.Message)
}
