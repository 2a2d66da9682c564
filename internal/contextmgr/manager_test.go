package contextmgr

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdigest/internal/domain"
)

// chunkOf builds an enriched chunk whose text costs tokens*4 english characters.
func chunkOf(index, tokens int, importance float64, level domain.SemanticLevel) domain.EnrichedChunk {
	text := strings.Repeat("a", tokens*4)
	return domain.EnrichedChunk{
		Chunk: domain.Chunk{
			Text: text,
			Metadata: domain.ChunkMetadata{
				StartIndex:    index * 1000,
				EndIndex:      index*1000 + len(text),
				ChunkIndex:    index,
				SemanticLevel: level,
			},
		},
		Importance: domain.Float(importance),
	}
}

func indexes(w domain.ContextWindow) []int {
	out := make([]int, len(w.Chunks))
	for i, c := range w.Chunks {
		out[i] = c.Index()
	}
	return out
}

func newManager(t *testing.T, budget int) *Manager {
	t.Helper()
	m, err := New(Config{MaxContextTokens: budget, Language: "english"}, nil)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	t.Run("ShouldRejectNonPositiveBudget", func(t *testing.T) {
		_, err := New(Config{MaxContextTokens: 0}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidBudget)
	})
}

func TestCreateTaskSpecificContext(t *testing.T) {
	var chunks []domain.EnrichedChunk
	for i := 9; i >= 0; i-- {
		chunks = append(chunks, chunkOf(i, 100, 0.9-0.1*float64(i), domain.LevelSection))
	}

	t.Run("ShouldKeepFourMostImportantForSummarize", func(t *testing.T) {
		m := newManager(t, 400)
		w, err := m.CreateTaskSpecificContext(chunks, domain.TaskSummarize, "english")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, indexes(w))
		assert.Equal(t, 400, w.TotalTokens)
		assert.Equal(t, domain.PriorityImportance, w.Priority)
	})
	t.Run("ShouldDropLowImportanceParagraphsForSummarize", func(t *testing.T) {
		m := newManager(t, 10_000)
		input := []domain.EnrichedChunk{
			chunkOf(0, 10, 0.9, domain.LevelParagraph),
			chunkOf(1, 10, 0.2, domain.LevelParagraph),
			chunkOf(2, 10, 0.1, domain.LevelSection),
		}
		w, err := m.CreateTaskSpecificContext(input, domain.TaskSummarize, "")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2}, indexes(w))
	})
	t.Run("ShouldKeepChronologicalOrderForQA", func(t *testing.T) {
		m := newManager(t, 10_000)
		w, err := m.CreateTaskSpecificContext(chunks, domain.TaskQA, "english")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, indexes(w))
		assert.Equal(t, domain.PriorityChronological, w.Priority)
	})
	t.Run("ShouldCapTaskWindowAtFifteenChunks", func(t *testing.T) {
		var many []domain.EnrichedChunk
		for i := 0; i < 30; i++ {
			many = append(many, chunkOf(i, 1, 0.5, domain.LevelParagraph))
		}
		m := newManager(t, 10_000)
		w, err := m.CreateTaskSpecificContext(many, domain.TaskTranslation, "english")
		require.NoError(t, err)
		assert.Len(t, w.Chunks, TaskMaxChunks)
	})
	t.Run("ShouldSampleDiverseChunksForAnalysis", func(t *testing.T) {
		var mixed []domain.EnrichedChunk
		for i := 0; i < 5; i++ {
			mixed = append(mixed, chunkOf(i, 1, 0.5, domain.LevelSection))
		}
		for i := 5; i < 12; i++ {
			mixed = append(mixed, chunkOf(i, 1, 0.95, domain.LevelParagraph))
		}
		for i := 12; i < 24; i++ {
			mixed = append(mixed, chunkOf(i, 1, 0.1, domain.LevelParagraph))
		}
		m := newManager(t, 10_000)
		w, err := m.CreateTaskSpecificContext(mixed, domain.TaskAnalysis, "english")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 5, 6, 7, 8, 9, 12, 13, 14, 15, 16, 17, 18}, indexes(w))
		assert.Equal(t, domain.PrioritySemantic, w.Priority)
	})
	t.Run("ShouldRejectUnknownTask", func(t *testing.T) {
		m := newManager(t, 100)
		_, err := m.CreateTaskSpecificContext(chunks, domain.Task("poetry"), "english")
		assert.ErrorIs(t, err, domain.ErrUnknownTask)
	})
	t.Run("ShouldNotReorderInput", func(t *testing.T) {
		m := newManager(t, 10_000)
		_, err := m.CreateTaskSpecificContext(chunks, domain.TaskQA, "english")
		require.NoError(t, err)
		assert.Equal(t, 9, chunks[0].Index())
	})
}

func TestSelectRelevantChunks(t *testing.T) {
	chunks := []domain.EnrichedChunk{
		chunkOf(0, 10, 0.2, domain.LevelParagraph),
		chunkOf(1, 10, 0.9, domain.LevelParagraph),
		chunkOf(2, 10, 0.1, domain.LevelParagraph),
		chunkOf(3, 10, 0.1, domain.LevelParagraph),
	}
	chunks[2].Title = "Photosynthesis basics"
	chunks[2].Keywords = []string{"photosynthesis", "chlorophyll"}

	t.Run("ShouldRankTitleAndKeywordMatchesFirst", func(t *testing.T) {
		m := newManager(t, 1000)
		w := m.SelectRelevantChunks(chunks, Query{Text: "how does photosynthesis work", MaxChunks: 2})
		assert.Equal(t, []int{2, 1}, indexes(w))
		assert.Equal(t, domain.PriorityImportance, w.Priority)
	})
	t.Run("ShouldAddNeighboursAndSortByIndex", func(t *testing.T) {
		m := newManager(t, 1000)
		w := m.SelectRelevantChunks(chunks, Query{Text: "photosynthesis", MaxChunks: 1, IncludeContext: true})
		assert.Equal(t, []int{1, 2, 3}, indexes(w))
		assert.Equal(t, 30, w.TotalTokens)
	})
	t.Run("ShouldSkipNeighboursThatOverflow", func(t *testing.T) {
		m := newManager(t, 15)
		w := m.SelectRelevantChunks(chunks, Query{Text: "photosynthesis", MaxChunks: 1, IncludeContext: true})
		assert.Equal(t, []int{2}, indexes(w))
	})
	t.Run("ShouldNeverExceedBudget", func(t *testing.T) {
		var many []domain.EnrichedChunk
		for i := 0; i < 40; i++ {
			many = append(many, chunkOf(i, 1+i%7*13, float64(i%10)/10, domain.LevelParagraph))
		}
		for _, budget := range []int{1, 5, 17, 64, 250, 1000} {
			t.Run(fmt.Sprint(budget), func(t *testing.T) {
				m := newManager(t, budget)
				for _, include := range []bool{false, true} {
					w := m.SelectRelevantChunks(many, Query{Text: "aaaa", MaxChunks: 40, IncludeContext: include})
					assert.LessOrEqual(t, w.TotalTokens, w.MaxTokens)
				}
			})
		}
	})
	t.Run("ShouldBeDeterministic", func(t *testing.T) {
		m := newManager(t, 1000)
		q := Query{Text: "photosynthesis chlorophyll", IncludeContext: true}
		assert.Equal(t, m.SelectRelevantChunks(chunks, q), m.SelectRelevantChunks(chunks, q))
	})
}

func TestAdaptiveContextSelection(t *testing.T) {
	chunks := []domain.EnrichedChunk{
		chunkOf(0, 50, 0.3, domain.LevelParagraph),
		chunkOf(1, 80, 0.9, domain.LevelParagraph),
		chunkOf(2, 10, 0.5, domain.LevelParagraph),
	}
	m := newManager(t, 1000)

	t.Run("ShouldReturnEmptyWindowWhenContextIsFull", func(t *testing.T) {
		w, err := m.AdaptiveContextSelection(chunks, strings.Repeat("b", 400), 100)
		require.NoError(t, err)
		assert.Empty(t, w.Chunks)
		assert.Equal(t, 100, w.TotalTokens)
		assert.Equal(t, 100, w.MaxTokens)
	})
	t.Run("ShouldSkipChunksThatDoNotFit", func(t *testing.T) {
		w, err := m.AdaptiveContextSelection(chunks, strings.Repeat("b", 40), 75)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 0}, indexes(w))
		assert.Equal(t, 70, w.TotalTokens)
		assert.LessOrEqual(t, w.TotalTokens, w.MaxTokens)
	})
	t.Run("ShouldRejectNonPositiveTarget", func(t *testing.T) {
		_, err := m.AdaptiveContextSelection(chunks, "", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidBudget)
	})
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("An Overview of the big ideas in one two three four five six seven eight nine")
	assert.Equal(t, []string{"overview", "the", "big", "ideas", "one", "two", "three", "four", "five", "six"}, got)
}
