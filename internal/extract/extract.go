// Package extract pulls indexable text out of content files on disk.
package extract

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	errs "github.com/Aman-CERP/fulltextd/internal/errors"
)

// sampleChars is how much of a file the language detector gets to see.
// Detection quality plateaus well below this.
const sampleChars = 4096

// Extractor reads the text of a content file. FullText returns the whole
// body for indexing; Sample returns a bounded prefix for language detection.
type Extractor interface {
	FullText(path string) (string, error)
	Sample(path string) (string, error)
}

type plainText struct{}

// NewPlainText returns an extractor that treats every file as UTF-8 text.
func NewPlainText() Extractor {
	return plainText{}
}

func (plainText) FullText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.IndexingIO(err)
	}
	return sanitize(string(data)), nil
}

func (plainText) Sample(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.IndexingIO(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, sampleChars))
	if err != nil {
		return "", errs.IndexingIO(err)
	}
	// A truncated read can split a multi-byte rune at the boundary.
	for i := 0; i < utf8.UTFMax-1 && len(data) > 0 && !utf8.Valid(data); i++ {
		data = data[:len(data)-1]
	}
	return sanitize(string(data)), nil
}

// sanitize strips the UTF-8 BOM and NUL bytes that occasionally show up in
// text exported from other tooling.
func sanitize(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.ReplaceAll(s, "\x00", "")
}
