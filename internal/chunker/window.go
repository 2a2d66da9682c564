package chunker

import (
	"fmt"

	"docdigest/internal/domain"
)

const (
	DefaultWindowSize = 4000
	DefaultStepSize   = 3000
	DefaultFixedSize  = 4000
)

// SlidingWindow emits fixed-length windows advancing by a smaller step, so
// consecutive windows share window-step runes of source text.
type SlidingWindow struct {
	window int
	step   int
}

// NewSlidingWindow requires 0 < step < window.
func NewSlidingWindow(window, step int) (*SlidingWindow, error) {
	if window <= 0 || step <= 0 || step >= window {
		return nil, fmt.Errorf("%w: sliding window needs 0 < step (%d) < window (%d)", domain.ErrInvalidConfig, step, window)
	}
	return &SlidingWindow{window: window, step: step}, nil
}

func (w *SlidingWindow) Name() string { return "sliding-window" }

// Chunk implements domain.Chunker. The span of each chunk is the whole window;
// OverlapPrefix marks the bytes already covered by the previous window.
func (w *SlidingWindow) Chunk(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	var out []domain.Chunk
	prevEnd := 0
	for start := 0; ; {
		end := cutAfter(text, start, w.window)
		out = append(out, domain.Chunk{
			Text: text[start:end],
			Metadata: domain.ChunkMetadata{
				StartIndex:    start,
				EndIndex:      end,
				ChunkIndex:    len(out),
				OverlapPrefix: max(0, prevEnd-start),
			},
		})
		prevEnd = end
		if end >= len(text) {
			break
		}
		start = min(cutAfter(text, start, w.step), end)
	}
	return out
}

// Fixed cuts text into consecutive pieces of at most size runes.
type Fixed struct {
	size int
}

// NewFixed requires a positive size.
func NewFixed(size int) (*Fixed, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: fixed chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	return &Fixed{size: size}, nil
}

func (f *Fixed) Name() string { return "fixed" }

// Chunk implements domain.Chunker.
func (f *Fixed) Chunk(text string) []domain.Chunk {
	var out []domain.Chunk
	for start := 0; start < len(text); {
		end := cutAfter(text, start, f.size)
		out = append(out, domain.Chunk{
			Text: text[start:end],
			Metadata: domain.ChunkMetadata{
				StartIndex: start,
				EndIndex:   end,
				ChunkIndex: len(out),
			},
		})
		start = end
	}
	return out
}
