package domain

import (
	"fmt"
	"slices"
)

// SemanticLevel tags the structural unit a chunk was cut from.
type SemanticLevel string

const (
	LevelNone      SemanticLevel = ""
	LevelParagraph SemanticLevel = "paragraph"
	LevelSection   SemanticLevel = "section"
	LevelChapter   SemanticLevel = "chapter"
)

// ChunkMetadata carries positional information about a chunk.
//
// StartIndex and EndIndex are byte offsets into the source text. For chunks
// that carry injected overlap padding they describe the un-padded core span.
// OverlapPrefix and OverlapSuffix count the bytes at either end of Text that
// repeat content of the neighbouring chunks.
type ChunkMetadata struct {
	StartIndex    int           `json:"startIndex"`
	EndIndex      int           `json:"endIndex"`
	ChunkIndex    int           `json:"chunkIndex"`
	SemanticLevel SemanticLevel `json:"semanticLevel,omitempty"`
	Title         string        `json:"title,omitempty"`
	PageNumbers   []int         `json:"pageNumbers,omitempty"`
	OverlapPrefix int           `json:"overlapPrefix,omitempty"`
	OverlapSuffix int           `json:"overlapSuffix,omitempty"`
}

// Chunk is a contiguous span of source text plus positional metadata.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Core returns the part of Text that is not shared with a neighbouring chunk.
// Concatenating the cores of a chunking run yields the source text.
func (c Chunk) Core() string {
	start, end := c.Metadata.OverlapPrefix, len(c.Text)-c.Metadata.OverlapSuffix
	if start < 0 || end > len(c.Text) || start > end {
		return c.Text
	}
	return c.Text[start:end]
}

// Validate rejects chunks whose metadata cannot describe a real span.
func (c Chunk) Validate() error {
	m := c.Metadata
	switch {
	case m.ChunkIndex < 0:
		return fmt.Errorf("%w: negative chunk index %d", ErrInvalidChunk, m.ChunkIndex)
	case m.StartIndex < 0 || m.StartIndex >= m.EndIndex:
		return fmt.Errorf("%w: chunk %d has span [%d,%d)", ErrInvalidChunk, m.ChunkIndex, m.StartIndex, m.EndIndex)
	case m.OverlapPrefix < 0 || m.OverlapSuffix < 0 || m.OverlapPrefix+m.OverlapSuffix > len(c.Text):
		return fmt.Errorf("%w: chunk %d overlap exceeds text", ErrInvalidChunk, m.ChunkIndex)
	}
	return nil
}

// ValidateChunks checks every chunk and rejects duplicate indexes.
func ValidateChunks[T interface{ Raw() Chunk }](chunks []T) error {
	seen := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		raw := c.Raw()
		if err := raw.Validate(); err != nil {
			return err
		}
		if _, dup := seen[raw.Metadata.ChunkIndex]; dup {
			return fmt.Errorf("%w: duplicate chunk index %d", ErrInvalidChunk, raw.Metadata.ChunkIndex)
		}
		seen[raw.Metadata.ChunkIndex] = struct{}{}
	}
	return nil
}

// Raw returns the chunk itself.
func (c Chunk) Raw() Chunk { return c }

// EnrichedChunk is a chunk plus the fields a provider attached to it.
type EnrichedChunk struct {
	Chunk
	Summary       string   `json:"summary,omitempty"`
	Title         string   `json:"title,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Importance    *float64 `json:"importance,omitempty"`
	Relationships []string `json:"relationships,omitempty"`
	ContentType   string   `json:"contentType,omitempty"`
	// Fallback is set when the summary was synthesised locally after a provider failure.
	Fallback bool `json:"fallback,omitempty"`
}

// Raw returns the underlying raw chunk.
func (e EnrichedChunk) Raw() Chunk { return e.Chunk }

// ImportanceOr returns the importance score or def when none was assigned.
func (e EnrichedChunk) ImportanceOr(def float64) float64 {
	if e.Importance == nil {
		return def
	}
	return *e.Importance
}

// Index is shorthand for the chunk index.
func (e EnrichedChunk) Index() int { return e.Metadata.ChunkIndex }

// Wrap lifts raw chunks into enriched chunks with no result fields set.
func Wrap(chunks []Chunk) []EnrichedChunk {
	out := make([]EnrichedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = EnrichedChunk{Chunk: c.clone()}
	}
	return out
}

// Enrich merges a provider summary into a copy of c. Fields the provider left
// empty keep the value c already had.
func Enrich(c EnrichedChunk, s Summary) EnrichedChunk {
	out := c.clone()
	if s.Summary != "" {
		out.Summary = s.Summary
	}
	if s.Title != "" {
		out.Title = s.Title
	}
	if len(s.Keywords) > 0 {
		out.Keywords = slices.Clone(s.Keywords)
	}
	if s.Importance != nil {
		v := clamp01(*s.Importance)
		out.Importance = &v
	}
	if s.ContentType != "" {
		out.ContentType = s.ContentType
	}
	out.Fallback = false
	return out
}

// Fallback returns a copy of c carrying a locally synthesised title and summary.
func Fallback(c EnrichedChunk, title, summary string) EnrichedChunk {
	out := c.clone()
	out.Title = title
	out.Summary = summary
	out.Fallback = true
	return out
}

func (c Chunk) clone() Chunk {
	c.Metadata.PageNumbers = slices.Clone(c.Metadata.PageNumbers)
	return c
}

func (e EnrichedChunk) clone() EnrichedChunk {
	e.Chunk = e.Chunk.clone()
	e.Keywords = slices.Clone(e.Keywords)
	e.Relationships = slices.Clone(e.Relationships)
	if e.Importance != nil {
		v := *e.Importance
		e.Importance = &v
	}
	return e
}

// Float returns a pointer to v, for optional score fields.
func Float(v float64) *float64 { return &v }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
