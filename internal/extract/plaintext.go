// Package extract provides TextExtractor implementations for plain-text
// sources.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"docdigest/internal/domain"
)

// PageBreak separates pages in plain-text sources.
const PageBreak = '\f'

var supported = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
	".text":     {},
}

// PlainText extracts text and page offsets from .txt and .md files.
type PlainText struct{}

// NewPlainText creates the extractor.
func NewPlainText() *PlainText { return &PlainText{} }

// Supports reports whether the file extension is handled.
func (PlainText) Supports(path string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads path, decoding UTF-8 or BOM-marked UTF-16. Form feeds split
// pages and are replaced by newlines in FullText so offsets stay stable.
func (p PlainText) Extract(path string) (domain.ExtractedText, error) {
	if !p.Supports(path) {
		return domain.ExtractedText{}, fmt.Errorf("extract: unsupported file type %q", filepath.Ext(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("extract: %w", err)
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("extract: decode %s: %w", path, err)
	}
	return FromString(strings.ReplaceAll(string(decoded), "\r\n", "\n")), nil
}

// FromString splits text into pages at form feeds.
func FromString(text string) domain.ExtractedText {
	var pages []domain.PageSpan
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != PageBreak {
			continue
		}
		pages = append(pages, domain.PageSpan{PageNumber: len(pages) + 1, StartIndex: start, EndIndex: i})
		start = i + 1
	}
	return domain.ExtractedText{
		FullText: strings.ReplaceAll(text, string(PageBreak), "\n"),
		Pages:    pages,
	}
}
