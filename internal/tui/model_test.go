package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdigest/internal/domain"
	"docdigest/internal/orchestrator"
)

type stubPort struct {
	query string
}

func (s *stubPort) Relevant(chunks []domain.EnrichedChunk, query, _ string) domain.ContextWindow {
	s.query = query
	return domain.ContextWindow{Chunks: chunks[len(chunks)-1:], TotalTokens: 3, MaxTokens: 10}
}

func enriched(i int, title string) domain.EnrichedChunk {
	return domain.EnrichedChunk{
		Chunk:   domain.Chunk{Text: title, Metadata: domain.ChunkMetadata{ChunkIndex: i, StartIndex: i, EndIndex: i + 1}},
		Title:   title,
		Summary: "<p>About " + title + ".</p>",
	}
}

func TestModel(t *testing.T) {
	port := &stubPort{}
	items := make(chan orchestrator.Item)
	var m tea.Model = New(port, items, 2, "doc.txt", "english")

	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "No chunks yet.")

	m, cmd := m.Update(itemMsg{Chunk: enriched(0, "Alpha"), Order: 0})
	require.NotNil(t, cmd)
	m, _ = m.Update(itemMsg{Chunk: enriched(1, "Beta"), Order: 1})
	m, _ = m.Update(streamDoneMsg{})
	view := m.View()
	assert.Contains(t, view, "Done: 2/2 chunks")
	assert.Contains(t, view, "About Alpha.")

	t.Run("ShouldCycleWithArrowKeys", func(t *testing.T) {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
		assert.Contains(t, next.View(), "About Beta.")
	})
	t.Run("ShouldQueryRelevantChunks", func(t *testing.T) {
		mm := m.(Model)
		mm.input.SetValue("beta")
		next, _ := mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, "beta", port.query)
		view := next.View()
		assert.Contains(t, view, `1 chunks for "beta"`)
		assert.Contains(t, view, "Chunk 1/1")

		cleared, _ := next.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Contains(t, cleared.View(), "Chunk 1/2")
	})
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Main content: one two", plainText("<p>Main content:</p><ul><li>one</li> <li>two</li></ul>"))
	assert.Equal(t, "", strings.TrimSpace(highlightBestSentence("", "q")))
}
