package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docdigest/internal/domain"
	"docdigest/internal/orchestrator"
)

// DigestPort is the TUI-facing subset of the digest service.
type DigestPort interface {
	Relevant(chunks []domain.EnrichedChunk, query, language string) domain.ContextWindow
}

type itemMsg orchestrator.Item

type streamDoneMsg struct{}

// Model is the Bubble Tea model that displays chunks as they stream in and
// filters them with a relevance query.
type Model struct {
	service   DigestPort
	items     <-chan orchestrator.Item
	total     int
	language  string
	title     string
	input     textinput.Model
	viewport  viewport.Model
	chunks    []domain.EnrichedChunk
	shown     []domain.EnrichedChunk
	status    string
	cursor    int
	ready     bool
	done      bool
	lastQuery string
}

// New creates a model reading from items, which carries total chunks.
func New(service DigestPort, items <-chan orchestrator.Item, total int, title, language string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter, Esc to clear"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		items:    items,
		total:    total,
		language: language,
		title:    title,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Summarizing 0/%d chunks...", total),
	}
}

func waitForItem(items <-chan orchestrator.Item) tea.Cmd {
	return func() tea.Msg {
		it, ok := <-items
		if !ok {
			return streamDoneMsg{}
		}
		return itemMsg(it)
	}
}

// Init starts the cursor blink and the stream reader.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, waitForItem(m.items)) }

// Update handles stream, key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemMsg:
		m.chunks = append(m.chunks, msg.Chunk)
		if m.lastQuery == "" {
			m.shown = m.chunks
		}
		m.status = fmt.Sprintf("Summarizing %d/%d chunks...", len(m.chunks), m.total)
		m.viewport.SetContent(m.renderCurrent())
		return m, waitForItem(m.items)
	case streamDoneMsg:
		m.done = true
		m.status = fmt.Sprintf("Done: %d/%d chunks. Type to search.", len(m.chunks), m.total)
		return m, nil
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1
		totalFooterLines := 1
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				w := m.service.Relevant(m.chunks, q, m.language)
				m.shown = w.Chunks
				m.cursor = 0
				m.lastQuery = q
				m.status = fmt.Sprintf("%d chunks for %q (%d/%d tokens)", len(w.Chunks), q, w.TotalTokens, w.MaxTokens)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "esc":
			m.input.SetValue("")
			m.lastQuery = ""
			m.shown = m.chunks
			m.cursor = 0
			m.viewport.SetContent(m.renderCurrent())
			return m, nil
		case "down":
			if len(m.shown) > 0 {
				m.cursor = (m.cursor + 1) % len(m.shown)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.shown) > 0 {
				m.cursor = (m.cursor - 1 + len(m.shown)) % len(m.shown)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current chunk.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.shown) == 0 {
		return "No chunks yet."
	}
	c := m.shown[m.cursor]
	head := fmt.Sprintf("Chunk %d/%d  #%d  importance=%.2f", m.cursor+1, len(m.shown), c.Index()+1, c.ImportanceOr(0))
	if len(c.Metadata.PageNumbers) > 0 {
		head += fmt.Sprintf("  pages=%v", c.Metadata.PageNumbers)
	}
	if c.Fallback {
		head += "  (fallback)"
	}
	title := lipgloss.NewStyle().Bold(true).Render(c.Title)
	body := highlightBestSentence(plainText(c.Summary), m.lastQuery)
	out := head + "\n" + title + "\n\n" + body
	if len(c.Keywords) > 0 {
		out += "\n\n" + keywordStyle.Render(strings.Join(c.Keywords, " · "))
	}
	return out
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	keywordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?。！？]+[.!?。！？])`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
)

// plainText drops HTML tags from provider summaries.
func plainText(s string) string {
	return strings.Join(strings.Fields(tagRe.ReplaceAllString(s, " ")), " ")
}

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
