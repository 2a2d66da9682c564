package chunker

import (
	"unicode/utf8"

	"docdigest/internal/domain"
)

// Dispatch thresholds, in characters (runes) of input text.
const (
	// StructuredMinLength is the length a structured text must exceed to be
	// chunked semantically.
	StructuredMinLength = 10_000
	// SlidingMinLength is the length above which unstructured text uses
	// sliding windows instead of a plain fixed split.
	SlidingMinLength = 50_000
	// MinStructureScore is the number of heading lines that makes a text
	// count as structured.
	MinStructureScore = 2
)

// Kind names a concrete chunking strategy.
type Kind string

const (
	KindSemantic Kind = "semantic"
	KindSliding  Kind = "sliding-window"
	KindFixed    Kind = "fixed"
)

// Classify picks a strategy from the text length and its structure score.
func Classify(length, structureScore int) Kind {
	switch {
	case structureScore >= MinStructureScore && length > StructuredMinLength:
		return KindSemantic
	case length > SlidingMinLength:
		return KindSliding
	default:
		return KindFixed
	}
}

// Adaptive dispatches each text to the semantic, sliding-window or fixed
// strategy according to Classify.
type Adaptive struct {
	strategies map[Kind]domain.Chunker
	detectors  []Detector
}

// NewAdaptive wires the three strategies. Nil detectors means
// StructureDetectors().
func NewAdaptive(semantic, sliding, fixed domain.Chunker, detectors []Detector) *Adaptive {
	if detectors == nil {
		detectors = StructureDetectors()
	}
	return &Adaptive{
		strategies: map[Kind]domain.Chunker{
			KindSemantic: semantic,
			KindSliding:  sliding,
			KindFixed:    fixed,
		},
		detectors: detectors,
	}
}

// NewDefaultAdaptive builds an Adaptive with stock sizes.
func NewDefaultAdaptive() *Adaptive {
	semantic, _ := NewSemantic(DefaultSemanticConfig())
	sliding, _ := NewSlidingWindow(DefaultWindowSize, DefaultStepSize)
	fixed, _ := NewFixed(DefaultFixedSize)
	return NewAdaptive(semantic, sliding, fixed, nil)
}

func (a *Adaptive) Name() string { return "adaptive" }

// Select returns the strategy Chunk would use for text.
func (a *Adaptive) Select(text string) domain.Chunker {
	return a.strategies[Classify(utf8.RuneCountInString(text), StructureScore(text, a.detectors))]
}

// Chunk implements domain.Chunker.
func (a *Adaptive) Chunk(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	return a.Select(text).Chunk(text)
}
