// Package analysis maps language tags to text-analysis pipelines and builds
// the per-language index mappings.
//
// Keeping documents of different languages in the same shard is a bad
// practice: a single analysis chain cannot satisfy the tokenization,
// stop-word and stemming requirements of every language. Each shard is
// therefore bound to exactly one language, and this package decides which
// analyzer that shard uses.
package analysis

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/lang/ckb"
	"github.com/blevesearch/bleve/v2/analysis/lang/da"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/lang/fa"
	"github.com/blevesearch/bleve/v2/analysis/lang/fi"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/lang/hi"
	"github.com/blevesearch/bleve/v2/analysis/lang/hu"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/analysis/lang/nl"
	"github.com/blevesearch/bleve/v2/analysis/lang/no"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/analysis/lang/ro"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/analysis/lang/sv"
	"github.com/blevesearch/bleve/v2/analysis/lang/tr"
)

// Unknown is the sentinel language tag: empty, unmapped or unreadable
// content routes to the "unknown" shard with the generic analyzer.
const Unknown = "unknown"

// langAnalyzers maps ISO 639-1 tags to bleve analyzer names. Tags without a
// dedicated bleve analysis chain fall back to the standard analyzer but keep
// their own shard. The tag set mirrors what the language detector can emit.
var langAnalyzers = map[string]string{
	"af":    standard.Name, // Afrikaans
	"an":    standard.Name, // Aragonese
	"ar":    ar.AnalyzerName,
	"ast":   standard.Name, // Asturian
	"be":    standard.Name, // Belarusian
	"bg":    standard.Name, // Bulgarian
	"bn":    standard.Name, // Bengali
	"br":    standard.Name, // Breton
	"ca":    standard.Name, // Catalan
	"cs":    standard.Name, // Czech
	"cy":    standard.Name, // Welsh
	"da":    da.AnalyzerName,
	"de":    de.AnalyzerName,
	"el":    standard.Name, // Greek
	"en":    en.AnalyzerName,
	"es":    es.AnalyzerName,
	"et":    standard.Name, // Estonian
	"eu":    standard.Name, // Basque
	"fa":    fa.AnalyzerName,
	"fi":    fi.AnalyzerName,
	"fr":    fr.AnalyzerName,
	"ga":    standard.Name, // Irish
	"gl":    standard.Name, // Galician
	"gu":    standard.Name, // Gujarati
	"he":    standard.Name, // Hebrew
	"hi":    hi.AnalyzerName,
	"hr":    standard.Name, // Croatian
	"ht":    standard.Name, // Haitian
	"hu":    hu.AnalyzerName,
	"id":    standard.Name, // Indonesian
	"is":    standard.Name, // Icelandic
	"it":    it.AnalyzerName,
	"ja":    cjk.AnalyzerName,
	"km":    standard.Name, // Khmer
	"kn":    standard.Name, // Kannada
	"ko":    cjk.AnalyzerName,
	"ku":    ckb.AnalyzerName, // Sorani Kurdish
	"lt":    standard.Name,    // Lithuanian
	"lv":    standard.Name,    // Latvian
	"mk":    standard.Name,    // Macedonian
	"ml":    standard.Name,    // Malayalam
	"mr":    standard.Name,    // Marathi
	"ms":    standard.Name,    // Malay
	"mt":    standard.Name,    // Maltese
	"ne":    standard.Name,    // Nepali
	"nl":    nl.AnalyzerName,
	"no":    no.AnalyzerName,
	"oc":    standard.Name, // Occitan
	"pa":    standard.Name, // Panjabi
	"pl":    standard.Name, // Polish
	"pt":    pt.AnalyzerName,
	"ro":    ro.AnalyzerName,
	"ru":    ru.AnalyzerName,
	"sk":    standard.Name, // Slovak
	"sl":    standard.Name, // Slovene
	"so":    standard.Name, // Somali
	"sq":    standard.Name, // Albanian
	"sr":    standard.Name, // Serbian
	"sv":    sv.AnalyzerName,
	"sw":    standard.Name, // Swahili
	"ta":    standard.Name, // Tamil
	"te":    standard.Name, // Telugu
	"th":    standard.Name, // Thai
	"tl":    standard.Name, // Tagalog
	"tr":    tr.AnalyzerName,
	"uk":    standard.Name, // Ukrainian
	"ur":    standard.Name, // Urdu
	"vi":    standard.Name, // Vietnamese
	"yi":    standard.Name, // Yiddish
	"zh":    cjk.AnalyzerName,
	"zh-cn": cjk.AnalyzerName,
	"zh-tw": cjk.AnalyzerName,
}

// Normalize lower-cases a language tag and maps empty or unknown tags to the
// Unknown sentinel. The result is the shard directory name.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == Unknown {
		return Unknown
	}
	if _, ok := langAnalyzers[lang]; !ok {
		return Unknown
	}
	return lang
}

// Known reports whether the tag maps to a shard of its own.
func Known(lang string) bool {
	_, ok := langAnalyzers[strings.ToLower(lang)]
	return ok
}

// AnalyzerName returns the bleve analyzer for the language. Unknown or
// unmapped tags get the generic standard analyzer, never a lookup failure.
func AnalyzerName(lang string) string {
	if name, ok := langAnalyzers[strings.ToLower(lang)]; ok {
		return name
	}
	return standard.Name
}

// KnownLanguages returns the sorted set of supported language tags.
func KnownLanguages() []string {
	langs := make([]string, 0, len(langAnalyzers))
	for lang := range langAnalyzers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
