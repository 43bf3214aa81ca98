// Package language detects the natural language of a piece of text so
// content can be routed to the matching index shard and analyzer.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/Aman-CERP/fulltextd/internal/analysis"
)

// Detector reports the lower-cased ISO 639-1 code of a text sample, or
// analysis.Unknown when no confident determination can be made.
type Detector interface {
	Detect(text string) string
}

type linguaDetector struct {
	det lingua.LanguageDetector
}

// NewDetector builds a statistical detector over all languages lingua
// supports. Model loading is lazy, so construction is cheap and the first
// detection per language pays the load cost.
func NewDetector() Detector {
	return &linguaDetector{
		det: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

func (d *linguaDetector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return analysis.Unknown
	}
	lang, ok := d.det.DetectLanguageOf(text)
	if !ok {
		return analysis.Unknown
	}
	return analysis.Normalize(strings.ToLower(lang.IsoCode639_1().String()))
}
