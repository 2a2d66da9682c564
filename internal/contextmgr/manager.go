// Package contextmgr selects and fits chunks into token-bounded context
// windows for downstream tasks.
package contextmgr

import (
	"fmt"
	"slices"

	"docdigest/internal/domain"
	"docdigest/internal/tokens"
)

const (
	DefaultMaxContextTokens = 32_000
	DefaultMaxChunks        = 10
	// TaskMaxChunks caps every task-specific window.
	TaskMaxChunks = 15
)

// Config configures a Manager.
type Config struct {
	MaxContextTokens int
	// Language is used for token estimates when a call does not name one.
	Language string
}

// Query describes a relevance-driven selection.
type Query struct {
	Text           string
	Language       string
	MaxChunks      int
	IncludeContext bool
}

// Manager ranks chunks and fits them into context windows. It holds no
// per-call state and never mutates the chunks it is given.
type Manager struct {
	maxTokens int
	language  string
	estimator tokens.Estimator
}

// New validates cfg. A nil estimator means the per-language ratio estimator.
func New(cfg Config, estimator tokens.Estimator) (*Manager, error) {
	if cfg.MaxContextTokens <= 0 {
		return nil, fmt.Errorf("contextmgr: max context tokens %d: %w", cfg.MaxContextTokens, domain.ErrInvalidBudget)
	}
	if estimator == nil {
		estimator = tokens.NewRatioEstimator()
	}
	return &Manager{maxTokens: cfg.MaxContextTokens, language: cfg.Language, estimator: estimator}, nil
}

// MaxTokens returns the configured window budget.
func (m *Manager) MaxTokens() int { return m.maxTokens }

func (m *Manager) lang(language string) string {
	if language == "" {
		return m.language
	}
	return language
}

func (m *Manager) estimate(c domain.EnrichedChunk, language string) int {
	return m.estimator.Estimate(c.Text, language)
}

// SelectRelevantChunks ranks chunks by 0.7*relevance + 0.3*importance against
// the query and fits the best of them into the window. With IncludeContext,
// neighbours of selected chunks are added while they still fit, and the
// result is ordered by chunk index.
func (m *Manager) SelectRelevantChunks(chunks []domain.EnrichedChunk, q Query) domain.ContextWindow {
	language := m.lang(q.Language)
	maxChunks := q.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	keywords := extractKeywords(q.Text)

	type ranked struct {
		chunk domain.EnrichedChunk
		score float64
	}
	scored := make([]ranked, len(chunks))
	for i, c := range chunks {
		scored[i] = ranked{chunk: c, score: 0.7*relevance(c, keywords) + 0.3*c.ImportanceOr(0)}
	}
	slices.SortStableFunc(scored, func(a, b ranked) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return a.chunk.Index() - b.chunk.Index()
	})
	ordered := make([]domain.EnrichedChunk, len(scored))
	for i, r := range scored {
		ordered[i] = r.chunk
	}

	selected, used := m.fit(ordered, maxChunks, m.maxTokens, language)
	if q.IncludeContext {
		selected, used = m.addNeighbours(selected, chunks, used, language)
		sortByIndex(selected)
	}
	return domain.ContextWindow{
		Chunks:      selected,
		TotalTokens: used,
		MaxTokens:   m.maxTokens,
		Priority:    domain.PriorityImportance,
	}
}

// CreateTaskSpecificContext applies the task's selection policy and fits the
// result into at most TaskMaxChunks chunks. The window lists chunks by index.
func (m *Manager) CreateTaskSpecificContext(chunks []domain.EnrichedChunk, task domain.Task, language string) (domain.ContextWindow, error) {
	var (
		selected []domain.EnrichedChunk
		priority domain.Priority
	)
	switch task {
	case domain.TaskSummarize:
		for _, c := range chunks {
			if c.ImportanceOr(0) > 0.6 || c.Metadata.SemanticLevel == domain.LevelSection {
				selected = append(selected, c)
			}
		}
		sortByImportance(selected)
		priority = domain.PriorityImportance
	case domain.TaskQA, domain.TaskTranslation:
		selected = slices.Clone(chunks)
		sortByIndex(selected)
		priority = domain.PriorityChronological
	case domain.TaskAnalysis:
		selected = diverse(chunks)
		priority = domain.PrioritySemantic
	default:
		return domain.ContextWindow{}, fmt.Errorf("contextmgr: %q: %w", task, domain.ErrUnknownTask)
	}

	fitted, used := m.fit(selected, TaskMaxChunks, m.maxTokens, m.lang(language))
	sortByIndex(fitted)
	return domain.ContextWindow{
		Chunks:      fitted,
		TotalTokens: used,
		MaxTokens:   m.maxTokens,
		Priority:    priority,
	}, nil
}

// AdaptiveContextSelection fills whatever budget currentContext leaves of
// targetTokens with the most important chunks that still fit.
func (m *Manager) AdaptiveContextSelection(chunks []domain.EnrichedChunk, currentContext string, targetTokens int) (domain.ContextWindow, error) {
	if targetTokens <= 0 {
		return domain.ContextWindow{}, fmt.Errorf("contextmgr: target tokens %d: %w", targetTokens, domain.ErrInvalidBudget)
	}
	current := m.estimator.Estimate(currentContext, m.language)
	available := targetTokens - current
	window := domain.ContextWindow{
		TotalTokens: current,
		MaxTokens:   targetTokens,
		Priority:    domain.PriorityImportance,
	}
	if available <= 0 {
		return window, nil
	}

	ordered := slices.Clone(chunks)
	sortByImportance(ordered)
	used := 0
	for _, c := range ordered {
		t := m.estimate(c, m.language)
		if used+t <= available {
			window.Chunks = append(window.Chunks, c)
			used += t
		}
	}
	window.TotalTokens = current + used
	return window, nil
}

// fit takes chunks in order until maxChunks is reached or the next chunk
// would overflow budget.
func (m *Manager) fit(chunks []domain.EnrichedChunk, maxChunks, budget int, language string) ([]domain.EnrichedChunk, int) {
	var out []domain.EnrichedChunk
	used := 0
	for _, c := range chunks {
		if len(out) >= maxChunks {
			break
		}
		t := m.estimate(c, language)
		if used+t > budget {
			break
		}
		out = append(out, c)
		used += t
	}
	return out, used
}

func (m *Manager) addNeighbours(selected, all []domain.EnrichedChunk, used int, language string) ([]domain.EnrichedChunk, int) {
	byIndex := make(map[int]domain.EnrichedChunk, len(all))
	for _, c := range all {
		byIndex[c.Index()] = c
	}
	have := make(map[int]struct{}, len(selected))
	for _, c := range selected {
		have[c.Index()] = struct{}{}
	}
	out := slices.Clone(selected)
	for _, c := range selected {
		for _, idx := range []int{c.Index() - 1, c.Index() + 1} {
			n, ok := byIndex[idx]
			if !ok {
				continue
			}
			if _, dup := have[idx]; dup {
				continue
			}
			t := m.estimate(n, language)
			if used+t > m.maxTokens {
				continue
			}
			have[idx] = struct{}{}
			out = append(out, n)
			used += t
		}
	}
	return out, used
}

// diverse samples up to 3 section chunks, 5 highly important chunks and 7
// of the rest, ordered by index.
func diverse(chunks []domain.EnrichedChunk) []domain.EnrichedChunk {
	var sections, important, regular []domain.EnrichedChunk
	for _, c := range chunks {
		isSection := c.Metadata.SemanticLevel == domain.LevelSection
		if isSection {
			sections = append(sections, c)
		}
		if c.ImportanceOr(0) > 0.7 {
			important = append(important, c)
		}
		if !isSection && c.ImportanceOr(0) <= 0.7 {
			regular = append(regular, c)
		}
	}
	seen := make(map[int]struct{})
	var out []domain.EnrichedChunk
	for _, group := range []struct {
		chunks []domain.EnrichedChunk
		limit  int
	}{{sections, 3}, {important, 5}, {regular, 7}} {
		for _, c := range group.chunks[:min(group.limit, len(group.chunks))] {
			if _, dup := seen[c.Index()]; dup {
				continue
			}
			seen[c.Index()] = struct{}{}
			out = append(out, c)
		}
	}
	sortByIndex(out)
	return out
}

func sortByIndex(chunks []domain.EnrichedChunk) {
	slices.SortStableFunc(chunks, func(a, b domain.EnrichedChunk) int {
		return a.Index() - b.Index()
	})
}

func sortByImportance(chunks []domain.EnrichedChunk) {
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
