package analysis

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names of an indexed document.
const (
	FieldID       = "id"
	FieldPath     = "path"
	FieldLanguage = "language"
	FieldContents = "contents"
)

// Document kinds. Add documents store the id; update documents index it
// without storing, so it remains an indexing signal but is not retrievable.
const (
	DocKindAdd    = "add"
	DocKindUpdate = "update"
)

// IndexMapping builds the bleve mapping for one language shard. The
// contents field is tokenized with the language analyzer, carries term
// vectors and is not stored; id, path and language are keyword fields.
func IndexMapping(lang string) mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	m.TypeField = "kind"
	m.DefaultField = FieldContents
	m.DefaultAnalyzer = AnalyzerName(lang)

	m.AddDocumentMapping(DocKindAdd, documentMapping(lang, true))
	m.AddDocumentMapping(DocKindUpdate, documentMapping(lang, false))
	return m
}

// SearchMapping builds the query-time mapping for the given language, used
// to analyze free-text queries. An empty language yields the generic
// standard analyzer, the fallback for multi-language composite searches.
func SearchMapping(lang string) mapping.IndexMapping {
	return IndexMapping(lang)
}

func documentMapping(lang string, storeID bool) *mapping.DocumentMapping {
	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(FieldID, keywordField(storeID))
	doc.AddFieldMappingsAt(FieldPath, keywordField(true))
	doc.AddFieldMappingsAt(FieldLanguage, keywordField(true))
	doc.AddFieldMappingsAt(FieldContents, contentsField(lang))
	return doc
}

// keywordField is indexed but not tokenized, like a Lucene StringField.
func keywordField(store bool) *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = keyword.Name
	f.Store = store
	f.Index = true
	f.IncludeInAll = false
	f.IncludeTermVectors = false
	return f
}

// contentsField is tokenized with the language analyzer and keeps term
// vectors so per-document term frequencies can be recovered later. The raw
// text is not stored.
func contentsField(lang string) *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = AnalyzerName(lang)
	f.Store = false
	f.Index = true
	f.IncludeInAll = false
	f.IncludeTermVectors = true
	return f
}
