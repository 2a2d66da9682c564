package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdigest/internal/domain"
	"docdigest/internal/logger"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	fail  func(text string) bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Summarize(_ context.Context, text, _ string, _ domain.Options) (domain.Summary, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.mu.Unlock()
	if p.fail != nil && p.fail(text) {
		return domain.Summary{}, &domain.ProviderError{Provider: "fake", Err: errors.New("boom")}
	}
	return domain.Summary{
		Title:      "T " + text,
		Summary:    "<p>S " + text + "</p>",
		Keywords:   []string{"k"},
		Importance: domain.Float(0.5),
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func rawChunks(texts ...string) []domain.EnrichedChunk {
	var chunks []domain.Chunk
	off := 0
	for i, t := range texts {
		chunks = append(chunks, domain.Chunk{
			Text:     t,
			Metadata: domain.ChunkMetadata{StartIndex: off, EndIndex: off + len(t), ChunkIndex: i},
		})
		off += len(t)
	}
	return domain.Wrap(chunks)
}

func numbered(n int) []domain.EnrichedChunk {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	return rawChunks(texts...)
}

func newOrchestrator(t *testing.T, p domain.Provider, cfg Config) *Orchestrator {
	t.Helper()
	o, err := New(p, cfg, logger.NewNop())
	require.NoError(t, err)
	return o
}

func TestNew(t *testing.T) {
	t.Run("ShouldApplyDefaults", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		assert.Equal(t, DefaultBatchSize, o.Config().BatchSize)
		assert.Equal(t, domain.LevelMedium, o.Config().Level)
		assert.Equal(t, DefaultCallTimeout, o.Config().CallTimeout)
	})
	t.Run("ShouldRejectInvalidConfig", func(t *testing.T) {
		_, err := New(nil, Config{}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		_, err = New(&fakeProvider{}, Config{BatchSize: -1}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		_, err = New(&fakeProvider{}, Config{Level: "epic"}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldKeepOrderAndFallBackForFailedChunk", func(t *testing.T) {
		p := &fakeProvider{fail: func(text string) bool { return text == "chunk 2" }}
		o := newOrchestrator(t, p, Config{BatchSize: 2})
		res, err := o.Process(ctx, numbered(5), "english")
		require.NoError(t, err)
		require.Len(t, res.Chunks, 5)
		for i, c := range res.Chunks {
			assert.Equal(t, i, c.Index())
			if i == 2 {
				assert.True(t, c.Fallback)
				assert.Equal(t, "Part 3", c.Title)
				assert.Equal(t, "chunk 2", c.Summary)
				continue
			}
			assert.False(t, c.Fallback)
			assert.Equal(t, fmt.Sprintf("T chunk %d", i), c.Title)
			assert.Equal(t, fmt.Sprintf("<p>S chunk %d</p>", i), c.Summary)
		}
		assert.Equal(t, 1, res.Hierarchy.Stats.FallbackChunks)
		assert.Equal(t, 6, p.callCount())
	})
	t.Run("ShouldCompleteDuringTotalOutage", func(t *testing.T) {
		p := &fakeProvider{fail: func(string) bool { return true }}
		o := newOrchestrator(t, p, Config{BatchSize: 3})
		res, err := o.Process(ctx, numbered(5), "english")
		require.NoError(t, err)
		require.Len(t, res.Chunks, 5)
		for _, c := range res.Chunks {
			assert.True(t, c.Fallback)
			assert.NotEmpty(t, c.Title)
			assert.NotEmpty(t, c.Summary)
		}
		h := res.Hierarchy
		assert.True(t, h.Stats.AggregatedLocally)
		assert.Equal(t, 5, h.Stats.FallbackChunks)
		assert.Equal(t, "Document Summary", h.Title)
		assert.Contains(t, h.OverallSummary, "This document has 5 parts.")
		assert.Contains(t, h.OverallSummary, "<li>Part 1</li>")
	})
	t.Run("ShouldTruncateFallbackByCharacters", func(t *testing.T) {
		p := &fakeProvider{fail: func(string) bool { return true }}
		o := newOrchestrator(t, p, Config{FallbackSummaryLength: 4})
		res, err := o.Process(ctx, rawChunks("abcé and more", "文档处理流程说明"), "english")
		require.NoError(t, err)
		assert.Equal(t, "abcé...", res.Chunks[0].Summary)
		assert.Equal(t, "文档处理...", res.Chunks[1].Summary)
	})
	t.Run("ShouldNotMutateInput", func(t *testing.T) {
		in := numbered(3)
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		_, err := o.Process(ctx, in, "english")
		require.NoError(t, err)
		for _, c := range in {
			assert.Empty(t, c.Summary)
			assert.Nil(t, c.Importance)
		}
	})
	t.Run("ShouldRejectEmptyInput", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		_, err := o.Process(ctx, nil, "english")
		assert.ErrorIs(t, err, domain.ErrNoChunks)
	})
	t.Run("ShouldRejectDuplicateIndexes", func(t *testing.T) {
		in := numbered(2)
		in[1].Metadata.ChunkIndex = 0
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		_, err := o.Process(ctx, in, "english")
		assert.ErrorIs(t, err, domain.ErrInvalidChunk)
	})
	t.Run("ShouldStopOnCancelledContext", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		p := &fakeProvider{}
		o := newOrchestrator(t, p, Config{})
		_, err := o.Process(cancelled, numbered(3), "english")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, p.callCount())
	})
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	enriched := numbered(7)
	for i := range enriched {
		enriched[i].Importance = domain.Float(float64(i) / 10)
		enriched[i].Summary = fmt.Sprintf("<p>summary %d</p>", i)
	}
	enriched[1].Metadata.SemanticLevel = domain.LevelSection
	enriched[1].Metadata.Title = "Methods"
	enriched[1].Metadata.PageNumbers = []int{2, 3}
	enriched[4].Metadata.SemanticLevel = domain.LevelSection

	t.Run("ShouldBeIdempotent", func(t *testing.T) {
		p := &fakeProvider{}
		o := newOrchestrator(t, p, Config{})
		a, err := o.Aggregate(ctx, enriched, "english")
		require.NoError(t, err)
		b, err := o.Aggregate(ctx, enriched, "english")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		require.Len(t, p.calls, 2)
		assert.Equal(t, p.calls[0], p.calls[1])
		assert.True(t, strings.HasPrefix(p.calls[0], "Part 1. summary 0\n\nMethods. summary 1"))
	})
	t.Run("ShouldRankKeyPointsAndCapByLevel", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{Level: domain.LevelBrief})
		h, err := o.Aggregate(ctx, enriched, "english")
		require.NoError(t, err)
		require.Len(t, h.KeyPoints, 5)
		assert.Equal(t, 6, h.KeyPoints[0].ChunkIndex)
		assert.Equal(t, "Part 7", h.KeyPoints[0].Point)
		assert.Equal(t, "summary 6", h.KeyPoints[0].Description)
		assert.Equal(t, "medium", h.KeyPoints[0].Importance)
		assert.Equal(t, "low", h.KeyPoints[4].Importance)
	})
	t.Run("ShouldListSectionsAndHighlights", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		h, err := o.Aggregate(ctx, enriched, "english")
		require.NoError(t, err)
		require.Len(t, h.Sections, 2)
		assert.Equal(t, Section{Title: "Methods", Summary: "<p>summary 1</p>", ChunkIndex: 1, PageNumbers: []int{2, 3}}, h.Sections[0])
		assert.Equal(t, "Part 5", h.Sections[1].Title)
		require.Len(t, h.Highlights, 3)
		assert.Equal(t, []int{6, 5, 4}, []int{h.Highlights[0].Index(), h.Highlights[1].Index(), h.Highlights[2].Index()})
		assert.Equal(t, "T "+combined(enriched), h.Title)
		assert.Equal(t, 7, h.Stats.TotalChunks)
		assert.Equal(t, "fake", h.Stats.Provider)
	})
}

func collect(ch <-chan Item) []Item {
	var out []Item
	for it := range ch {
		out = append(out, it)
	}
	return out
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	prioritised := func() []domain.EnrichedChunk {
		in := numbered(4)
		for i, imp := range []float64{0.1, 0.9, 0.5, 0.9} {
			in[i].Importance = domain.Float(imp)
		}
		return in
	}

	t.Run("ShouldEmitInPriorityOrder", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{BatchSize: 2, PriorityStream: true})
		ch, err := o.Stream(ctx, prioritised(), "english")
		require.NoError(t, err)
		items := collect(ch)
		require.Len(t, items, 4)
		var got []int
		for i, it := range items {
			assert.Equal(t, i, it.Order)
			got = append(got, it.Chunk.Index())
		}
		assert.Equal(t, []int{1, 3, 2, 0}, got)
	})
	t.Run("ShouldEmitInIndexOrderWithoutPriority", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{BatchSize: 3})
		ch, err := o.Stream(ctx, prioritised(), "english")
		require.NoError(t, err)
		items := collect(ch)
		require.Len(t, items, 4)
		for i, it := range items {
			assert.Equal(t, i, it.Chunk.Index())
		}
	})
	t.Run("ShouldEmitFallbacks", func(t *testing.T) {
		p := &fakeProvider{fail: func(text string) bool { return text == "chunk 1" }}
		o := newOrchestrator(t, p, Config{BatchSize: 2})
		ch, err := o.Stream(ctx, numbered(3), "english")
		require.NoError(t, err)
		items := collect(ch)
		require.Len(t, items, 3)
		assert.True(t, items[1].Chunk.Fallback)
		assert.Equal(t, "Part 2", items[1].Chunk.Title)
	})
	t.Run("ShouldStopAfterCancellation", func(t *testing.T) {
		p := &fakeProvider{}
		o := newOrchestrator(t, p, Config{BatchSize: 1})
		cctx, cancel := context.WithCancel(ctx)
		ch, err := o.Stream(cctx, numbered(10), "english")
		require.NoError(t, err)
		first := <-ch
		assert.Equal(t, 0, first.Order)
		cancel()
		rest := collect(ch)
		assert.LessOrEqual(t, len(rest), 1)
		assert.LessOrEqual(t, p.callCount(), 2)
	})
	t.Run("ShouldRejectEmptyInput", func(t *testing.T) {
		o := newOrchestrator(t, &fakeProvider{}, Config{})
		_, err := o.Stream(ctx, nil, "english")
		assert.ErrorIs(t, err, domain.ErrNoChunks)
	})
}
