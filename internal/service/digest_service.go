package service

import (
	"context"
	"fmt"

	"docdigest/internal/chunker"
	"docdigest/internal/contextmgr"
	"docdigest/internal/domain"
	"docdigest/internal/logger"
	"docdigest/internal/orchestrator"
)

// DigestService runs the document pipeline: extract, chunk, then either
// enrich everything or select a task-specific context window.
type DigestService struct {
	extractor domain.TextExtractor
	chunker   domain.Chunker
	contexts  *contextmgr.Manager
	orch      *orchestrator.Orchestrator
	language  string
	maxChunks int
	log       logger.Logger
}

func NewDigestService(
	extractor domain.TextExtractor,
	ch domain.Chunker,
	contexts *contextmgr.Manager,
	orch *orchestrator.Orchestrator,
	language string,
	maxChunks int,
	log logger.Logger,
) *DigestService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &DigestService{
		extractor: extractor,
		chunker:   ch,
		contexts:  contexts,
		orch:      orch,
		language:  language,
		maxChunks: maxChunks,
		log:       log,
	}
}

func (s *DigestService) lang(language string) string {
	if language == "" {
		return s.language
	}
	return language
}

// Chunks extracts path and splits it with page numbers attached.
func (s *DigestService) Chunks(path string) ([]domain.Chunk, error) {
	text, err := s.extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	chunks := chunker.AssignPages(s.chunker.Chunk(text.FullText), text.Pages)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoChunks)
	}
	s.log.Debug("document chunked", "path", path, "strategy", s.strategy(text.FullText), "chunks", len(chunks))
	return chunks, nil
}

func (s *DigestService) strategy(text string) string {
	if a, ok := s.chunker.(*chunker.Adaptive); ok {
		return a.Select(text).Name()
	}
	return s.chunker.Name()
}

// Summarize enriches every chunk of path and returns the hierarchical result.
func (s *DigestService) Summarize(ctx context.Context, path, language string) (*orchestrator.Result, error) {
	chunks, err := s.Chunks(path)
	if err != nil {
		return nil, err
	}
	return s.orch.Process(ctx, domain.Wrap(chunks), s.lang(language))
}

// Stream enriches the chunks of path incrementally; see orchestrator.Stream
// for the emission order. Freshly chunked text has no importance scores, so
// priority streaming falls back to chunk index order here.
func (s *DigestService) Stream(ctx context.Context, path, language string) (<-chan orchestrator.Item, int, error) {
	chunks, err := s.Chunks(path)
	if err != nil {
		return nil, 0, err
	}
	ch, err := s.orch.Stream(ctx, domain.Wrap(chunks), s.lang(language))
	if err != nil {
		return nil, 0, err
	}
	return ch, len(chunks), nil
}

// Context enriches path and fits the result to the window policy of task.
func (s *DigestService) Context(ctx context.Context, path string, task domain.Task, language string) (domain.ContextWindow, error) {
	res, err := s.Summarize(ctx, path, language)
	if err != nil {
		return domain.ContextWindow{}, err
	}
	return s.contexts.CreateTaskSpecificContext(res.Chunks, task, s.lang(language))
}

// Relevant ranks already enriched chunks against a free-text query.
func (s *DigestService) Relevant(chunks []domain.EnrichedChunk, query, language string) domain.ContextWindow {
	return s.contexts.SelectRelevantChunks(chunks, contextmgr.Query{
		Text:           query,
		Language:       s.lang(language),
		MaxChunks:      s.maxChunks,
		IncludeContext: true,
	})
}
