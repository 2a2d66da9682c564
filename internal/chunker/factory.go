package chunker

import (
	"fmt"

	"docdigest/internal/domain"
)

// Config selects and sizes a strategy. Zero sizes take the defaults, except
// MinChunkSize and OverlapSize where zero is a valid setting; start from
// DefaultConfig for the stock values.
type Config struct {
	Strategy     string
	MaxChunkSize int
	MinChunkSize int
	OverlapSize  int
	WindowSize   int
	StepSize     int
	FixedSize    int
	// SentencesPerChunk and OverlapSentences size the sentence strategy.
	SentencesPerChunk int
	OverlapSentences  int
}

// DefaultConfig returns the adaptive strategy with stock sizes.
func DefaultConfig() Config {
	sem := DefaultSemanticConfig()
	return Config{
		Strategy:          "adaptive",
		MaxChunkSize:      sem.MaxChunkSize,
		MinChunkSize:      sem.MinChunkSize,
		OverlapSize:       sem.OverlapSize,
		WindowSize:        DefaultWindowSize,
		StepSize:          DefaultStepSize,
		FixedSize:         DefaultFixedSize,
		SentencesPerChunk: DefaultSentencesPerChunk,
		OverlapSentences:  DefaultOverlapSentences,
	}
}

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = "adaptive"
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = DefaultSemanticConfig().MaxChunkSize
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.StepSize == 0 {
		c.StepSize = DefaultStepSize
	}
	if c.FixedSize == 0 {
		c.FixedSize = DefaultFixedSize
	}
	if c.SentencesPerChunk == 0 {
		c.SentencesPerChunk = DefaultSentencesPerChunk
		if c.OverlapSentences == 0 {
			c.OverlapSentences = DefaultOverlapSentences
		}
	}
	return c
}

// New builds the strategy named by cfg.Strategy: adaptive, semantic,
// sliding-window (or sliding), fixed or sentence.
func New(cfg Config) (domain.Chunker, error) {
	cfg = cfg.withDefaults()
	semantic, err := NewSemantic(SemanticConfig{
		MaxChunkSize: cfg.MaxChunkSize,
		MinChunkSize: cfg.MinChunkSize,
		OverlapSize:  cfg.OverlapSize,
	})
	if err != nil {
		return nil, err
	}
	sliding, err := NewSlidingWindow(cfg.WindowSize, cfg.StepSize)
	if err != nil {
		return nil, err
	}
	fixed, err := NewFixed(cfg.FixedSize)
	if err != nil {
		return nil, err
	}
	switch cfg.Strategy {
	case "adaptive":
		return NewAdaptive(semantic, sliding, fixed, nil), nil
	case "semantic":
		return semantic, nil
	case "sliding-window", "sliding":
		return sliding, nil
	case "fixed":
		return fixed, nil
	case "sentence":
		sentence, err := NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences)
		if err != nil {
			return nil, err
		}
		return sentence, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidConfig, cfg.Strategy)
	}
}
