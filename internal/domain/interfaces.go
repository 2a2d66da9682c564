package domain

import "context"

// PageSpan locates one source page inside the extracted full text.
type PageSpan struct {
	PageNumber int
	StartIndex int
	EndIndex   int
}

// ExtractedText is what a TextExtractor hands to the chunking engine.
type ExtractedText struct {
	FullText string
	Pages    []PageSpan
}

// TextExtractor turns a source document into plain text plus page offsets.
type TextExtractor interface {
	Extract(path string) (ExtractedText, error)
}

// Chunker splits raw text into ordered chunks. Implementations are pure and
// never fail on well-formed input.
type Chunker interface {
	Name() string
	Chunk(text string) []Chunk
}

// SummaryLevel selects how much detail a provider should keep.
type SummaryLevel string

const (
	LevelBrief    SummaryLevel = "brief"
	LevelMedium   SummaryLevel = "medium"
	LevelDetailed SummaryLevel = "detailed"
)

// MaxTokens returns the output budget associated with the level.
func (l SummaryLevel) MaxTokens() int {
	switch l {
	case LevelBrief:
		return 200
	case LevelDetailed:
		return 800
	default:
		return 500
	}
}

// Options tunes a single provider call.
type Options struct {
	Level     SummaryLevel
	MaxTokens int
}

// Summary is the structured output of a provider call.
type Summary struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords,omitempty"`
	Importance  *float64 `json:"importance,omitempty"`
	ContentType string   `json:"contentType,omitempty"`
}

// Provider produces a summary of free text. Remote and local implementations
// share this shape so callers never need to know which one they hold.
type Provider interface {
	Name() string
	Summarize(ctx context.Context, text, language string, opts Options) (Summary, error)
}
