// Package orchestrator drives a summarization provider over a document's
// chunks in bounded batches and rolls the results up into a hierarchy.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"docdigest/internal/domain"
	"docdigest/internal/logger"
)

const (
	DefaultBatchSize             = 5
	DefaultBatchDelay            = 100 * time.Millisecond
	DefaultStreamDelay           = 50 * time.Millisecond
	DefaultCallTimeout           = 60 * time.Second
	DefaultFallbackSummaryLength = 200
)

// Config tunes batching and fallback behaviour. Zero delays disable the
// corresponding pause.
type Config struct {
	BatchSize             int                 `yaml:"batch_size"`
	BatchDelay            time.Duration       `yaml:"batch_delay"`
	StreamDelay           time.Duration       `yaml:"stream_delay"`
	CallTimeout           time.Duration       `yaml:"call_timeout"`
	FallbackSummaryLength int                 `yaml:"fallback_summary_length"`
	Level                 domain.SummaryLevel `yaml:"level"`
	// PriorityStream makes Stream process chunks by descending importance.
	PriorityStream bool `yaml:"priority_stream"`
}

func DefaultConfig() Config {
	return Config{
		BatchSize:             DefaultBatchSize,
		BatchDelay:            DefaultBatchDelay,
		StreamDelay:           DefaultStreamDelay,
		CallTimeout:           DefaultCallTimeout,
		FallbackSummaryLength: DefaultFallbackSummaryLength,
		Level:                 domain.LevelMedium,
		PriorityStream:        true,
	}
}

// Orchestrator enriches chunks through a single provider chosen up front.
// It keeps no state between calls.
type Orchestrator struct {
	provider domain.Provider
	cfg      Config
	log      logger.Logger
}

// New validates cfg and fills unset sizes with defaults.
func New(provider domain.Provider, cfg Config, log logger.Logger) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("orchestrator: nil provider: %w", domain.ErrInvalidConfig)
	}
	if cfg.BatchSize < 0 || cfg.BatchDelay < 0 || cfg.StreamDelay < 0 {
		return nil, fmt.Errorf("orchestrator: negative batch setting: %w", domain.ErrInvalidConfig)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.FallbackSummaryLength <= 0 {
		cfg.FallbackSummaryLength = DefaultFallbackSummaryLength
	}
	switch cfg.Level {
	case "":
		cfg.Level = domain.LevelMedium
	case domain.LevelBrief, domain.LevelMedium, domain.LevelDetailed:
	default:
		return nil, fmt.Errorf("orchestrator: summary level %q: %w", cfg.Level, domain.ErrInvalidConfig)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Orchestrator{provider: provider, cfg: cfg, log: log.With("provider", provider.Name())}, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Result is the collect-all output: every chunk in input order plus the
// document-level roll-up.
type Result struct {
	Chunks    []domain.EnrichedChunk `json:"chunks"`
	Hierarchy Hierarchy              `json:"hierarchy"`
}

// Item is one streamed chunk. Order is its position in processing order.
type Item struct {
	Chunk domain.EnrichedChunk `json:"chunk"`
	Order int                  `json:"order"`
}

func validate(chunks []domain.EnrichedChunk) error {
	if len(chunks) == 0 {
		return domain.ErrNoChunks
	}
	return domain.ValidateChunks(chunks)
}

// Process enriches every chunk, batch by batch, and aggregates the result.
// Provider failures never fail the run; each affected chunk gets a fallback.
// Output order equals input order whatever the completion order was.
func (o *Orchestrator) Process(ctx context.Context, chunks []domain.EnrichedChunk, language string) (*Result, error) {
	if err := validate(chunks); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	start := time.Now()
	out := make([]domain.EnrichedChunk, len(chunks))
	for lo := 0; lo < len(chunks); lo += o.cfg.BatchSize {
		if lo > 0 {
			if err := sleep(ctx, o.cfg.BatchDelay); err != nil {
				return nil, fmt.Errorf("orchestrator: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orchestrator: %w", err)
		}
		hi := min(lo+o.cfg.BatchSize, len(chunks))
		g := new(errgroup.Group)
		g.SetLimit(o.cfg.BatchSize)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				out[i] = o.enrich(ctx, chunks[i], language)
				return nil
			})
		}
		_ = g.Wait()
		o.log.Debug("batch done", "from", lo, "to", hi)
	}

	h, err := o.Aggregate(ctx, out, language)
	if err != nil {
		return nil, err
	}
	o.log.Info("document processed",
		"chunks", len(out),
		"fallbacks", h.Stats.FallbackChunks,
		"duration", time.Since(start).Round(time.Millisecond))
	return &Result{Chunks: out, Hierarchy: h}, nil
}

// Stream enriches chunks with the same batching and fallback rules as
// Process and emits each one as soon as it and every chunk before it in
// processing order are done. With PriorityStream the processing order is
// descending importance ("priority-ordered streaming"), otherwise input
// order. Emission is in processing order, so within a batch a slow call
// holds back chunks after it that have already finished. Cancelling ctx
// stops new calls and emissions; calls already in flight finish. The
// channel is closed when streaming ends.
func (o *Orchestrator) Stream(ctx context.Context, chunks []domain.EnrichedChunk, language string) (<-chan Item, error) {
	if err := validate(chunks); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	ordered := slices.Clone(chunks)
	if o.cfg.PriorityStream {
		byImportance(ordered)
	}
	ch := make(chan Item)
	go func() {
		defer close(ch)
		o.stream(ctx, ordered, language, ch)
	}()
	return ch, nil
}

func (o *Orchestrator) stream(ctx context.Context, ordered []domain.EnrichedChunk, language string, ch chan<- Item) {
	emitted := 0
	for lo := 0; lo < len(ordered); lo += o.cfg.BatchSize {
		if lo > 0 && sleep(ctx, o.cfg.BatchDelay) != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		hi := min(lo+o.cfg.BatchSize, len(ordered))
		results := make([]domain.EnrichedChunk, hi-lo)
		ran := make([]bool, hi-lo)
		done := make([]chan struct{}, hi-lo)
		g := new(errgroup.Group)
		g.SetLimit(o.cfg.BatchSize)
		for i := lo; i < hi; i++ {
			done[i-lo] = make(chan struct{})
			g.Go(func() error {
				defer close(done[i-lo])
				if ctx.Err() != nil {
					return nil
				}
				results[i-lo] = o.enrich(ctx, ordered[i], language)
				ran[i-lo] = true
				return nil
			})
		}
		cancelled := false
		for j := range results {
			<-done[j]
			if !ran[j] || ctx.Err() != nil {
				cancelled = true
				break
			}
			select {
			case ch <- Item{Chunk: results[j], Order: lo + j}:
				emitted++
			case <-ctx.Done():
				cancelled = true
			}
			if cancelled {
				break
			}
			if lo+j < len(ordered)-1 && sleep(ctx, o.cfg.StreamDelay) != nil {
				cancelled = true
				break
			}
		}
		_ = g.Wait()
		if cancelled {
			break
		}
	}
	if ctx.Err() != nil {
		o.log.Info("stream cancelled", "emitted", emitted, "total", len(ordered))
		return
	}
	o.log.Debug("stream finished", "emitted", emitted)
}

// enrich performs one provider call. The call is detached from ctx
// cancellation and bounded by CallTimeout only.
func (o *Orchestrator) enrich(ctx context.Context, c domain.EnrichedChunk, language string) domain.EnrichedChunk {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CallTimeout)
	defer cancel()
	s, err := o.provider.Summarize(callCtx, c.Text, language, domain.Options{
		Level:     o.cfg.Level,
		MaxTokens: o.cfg.Level.MaxTokens(),
	})
	if err != nil {
		o.log.Warn("chunk summary failed, using fallback", "chunk", c.Index(), "err", err)
		return o.fallback(c)
	}
	return domain.Enrich(c, s)
}

func (o *Orchestrator) fallback(c domain.EnrichedChunk) domain.EnrichedChunk {
	return domain.Fallback(c, partTitle(c), prefix(c.Core(), o.cfg.FallbackSummaryLength))
}

func partTitle(c domain.EnrichedChunk) string {
	return fmt.Sprintf("Part %d", c.Index()+1)
}

// prefix returns the first n runes of s, with "..." appended when s was
// truncated.
func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// byImportance sorts by descending importance, ties by chunk index.
func byImportance(chunks []domain.EnrichedChunk) {
	slices.SortStableFunc(chunks, func(a, b domain.EnrichedChunk) int {
		ia, ib := a.ImportanceOr(0), b.ImportanceOr(0)
		switch {
		case ia > ib:
			return -1
		case ia < ib:
			return 1
		}
		return a.Index() - b.Index()
	})
}
