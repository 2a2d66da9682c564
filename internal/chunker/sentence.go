package chunker

import (
	"fmt"
	"regexp"

	"docdigest/internal/domain"
)

const (
	DefaultSentencesPerChunk = 5
	DefaultOverlapSentences  = 1
)

// SentenceChunker groups consecutive sentences into chunks, repeating the
// last overlapSentences sentences of a chunk at the start of the next one.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

// NewSentenceChunker requires 0 <= overlapSentences < sentencesPerChunk.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 || overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		return nil, fmt.Errorf("%w: sentence chunker needs 0 <= overlap (%d) < sentences per chunk (%d)",
			domain.ErrInvalidConfig, overlapSentences, sentencesPerChunk)
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`[.!?。！？]+\s*`),
	}, nil
}

func (c *SentenceChunker) Name() string { return "sentence" }

// bounds returns sentence boundaries b with b[0] = 0 and b[len-1] = len(text);
// sentence k spans [b[k], b[k+1]).
func (c *SentenceChunker) bounds(text string) []int {
	b := []int{0}
	for _, m := range c.splitter.FindAllStringIndex(text, -1) {
		if m[1] > b[len(b)-1] && m[1] < len(text) {
			b = append(b, m[1])
		}
	}
	return append(b, len(text))
}

// Chunk implements domain.Chunker. Like SlidingWindow, each span covers the
// whole chunk and OverlapPrefix marks the repeated sentences.
func (c *SentenceChunker) Chunk(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	b := c.bounds(text)
	n := len(b) - 1
	var out []domain.Chunk
	prevEnd := 0
	for i := 0; i < n; {
		end := min(i+c.sentencesPerChunk, n)
		start := b[i]
		out = append(out, domain.Chunk{
			Text: text[start:b[end]],
			Metadata: domain.ChunkMetadata{
				StartIndex:    start,
				EndIndex:      b[end],
				ChunkIndex:    len(out),
				OverlapPrefix: max(0, prevEnd-start),
			},
		})
		if end == n {
			break
		}
		prevEnd = b[end]
		i = end - c.overlapSentences
	}
	return out
}
