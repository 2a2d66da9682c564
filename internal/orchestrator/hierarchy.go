package orchestrator

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"

	"docdigest/internal/domain"
)

const highlightCount = 3

// Hierarchy is the document-level roll-up of enriched chunks.
type Hierarchy struct {
	Title          string                 `json:"title"`
	OverallSummary string                 `json:"overallSummary"`
	KeyPoints      []KeyPoint             `json:"keyPoints"`
	Sections       []Section              `json:"sections"`
	Highlights     []domain.EnrichedChunk `json:"highlights"`
	Stats          Stats                  `json:"stats"`
}

// KeyPoint is one ranked point. Importance is a bucket: high, medium or low.
type KeyPoint struct {
	Point       string  `json:"point"`
	Description string  `json:"description"`
	Importance  string  `json:"importance"`
	Score       float64 `json:"score"`
	ChunkIndex  int     `json:"chunkIndex"`
}

// Section is one entry of the structural breakdown.
type Section struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	ChunkIndex  int    `json:"chunkIndex"`
	PageNumbers []int  `json:"pageNumbers,omitempty"`
}

type Stats struct {
	TotalChunks    int                 `json:"totalChunks"`
	FallbackChunks int                 `json:"fallbackChunks"`
	Language       string              `json:"language"`
	Level          domain.SummaryLevel `json:"level"`
	Provider       string              `json:"provider"`
	// AggregatedLocally is set when the overall summary call failed.
	AggregatedLocally bool `json:"aggregatedLocally,omitempty"`
}

var markup = regexp.MustCompile(`<[^>]*>`)

// maxKeyPoints caps the key point list per summary level.
func maxKeyPoints(level domain.SummaryLevel) int {
	switch level {
	case domain.LevelBrief:
		return 5
	case domain.LevelDetailed:
		return 10
	default:
		return 8
	}
}

// Aggregate builds the hierarchy for already enriched chunks. It issues one
// provider call for the overall summary and falls back to a local overview
// when that call fails. It has no side effects; repeated calls over the
// same chunks with a deterministic provider return equal results.
func (o *Orchestrator) Aggregate(ctx context.Context, enriched []domain.EnrichedChunk, language string) (Hierarchy, error) {
	if err := validate(enriched); err != nil {
		return Hierarchy{}, fmt.Errorf("orchestrator: %w", err)
	}
	h := Hierarchy{
		KeyPoints:  o.keyPoints(enriched),
		Sections:   o.sections(enriched),
		Highlights: highlights(enriched),
		Stats: Stats{
			TotalChunks: len(enriched),
			Language:    language,
			Level:       o.cfg.Level,
			Provider:    o.provider.Name(),
		},
	}
	for _, c := range enriched {
		if c.Fallback {
			h.Stats.FallbackChunks++
		}
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CallTimeout)
	defer cancel()
	s, err := o.provider.Summarize(callCtx, combined(enriched), language, domain.Options{
		Level:     o.cfg.Level,
		MaxTokens: o.cfg.Level.MaxTokens(),
	})
	if err != nil || strings.TrimSpace(s.Summary) == "" {
		o.log.Warn("overall summary failed, using local overview", "err", err)
		h.Title, h.OverallSummary = o.localOverview(enriched)
		h.Stats.AggregatedLocally = true
		return h, nil
	}
	h.Title = s.Title
	if h.Title == "" {
		h.Title = documentTitle(enriched)
	}
	h.OverallSummary = s.Summary
	return h, nil
}

// combined joins chunk summaries as plain text, one part per paragraph.
func combined(enriched []domain.EnrichedChunk) string {
	parts := make([]string, 0, len(enriched))
	for _, c := range enriched {
		summary := plain(c.Summary)
		if summary == "" {
			continue
		}
		parts = append(parts, titleOf(c)+". "+summary)
	}
	return strings.Join(parts, "\n\n")
}

func plain(s string) string {
	s = markup.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func titleOf(c domain.EnrichedChunk) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Metadata.Title != "":
		return c.Metadata.Title
	}
	return partTitle(c)
}

func documentTitle(enriched []domain.EnrichedChunk) string {
	for _, c := range enriched {
		if c.Metadata.Title != "" {
			return c.Metadata.Title
		}
	}
	return "Document Summary"
}

func (o *Orchestrator) localOverview(enriched []domain.EnrichedChunk) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>This document has %d parts.</p><ul>", len(enriched))
	limit := maxKeyPoints(o.cfg.Level)
	for i, c := range enriched {
		if i == limit {
			break
		}
		b.WriteString("<li>" + html.EscapeString(titleOf(c)) + "</li>")
	}
	b.WriteString("</ul>")
	return documentTitle(enriched), b.String()
}

func (o *Orchestrator) keyPoints(enriched []domain.EnrichedChunk) []KeyPoint {
	ranked := slices.Clone(enriched)
	byImportance(ranked)
	ranked = ranked[:min(maxKeyPoints(o.cfg.Level), len(ranked))]
	out := make([]KeyPoint, len(ranked))
	for i, c := range ranked {
		score := c.ImportanceOr(0)
		out[i] = KeyPoint{
			Point:       titleOf(c),
			Description: plain(c.Summary),
			Importance:  bucket(score),
			Score:       score,
			ChunkIndex:  c.Index(),
		}
	}
	return out
}

func bucket(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	}
	return "low"
}

func (o *Orchestrator) sections(enriched []domain.EnrichedChunk) []Section {
	var out []Section
	for _, c := range enriched {
		lvl := c.Metadata.SemanticLevel
		if lvl != domain.LevelSection && lvl != domain.LevelChapter {
			continue
		}
		summary := c.Summary
		if summary == "" {
			summary = prefix(c.Core(), o.cfg.FallbackSummaryLength)
		}
		out = append(out, Section{
			Title:       titleOf(c),
			Summary:     summary,
			ChunkIndex:  c.Index(),
			PageNumbers: slices.Clone(c.Metadata.PageNumbers),
		})
	}
	return out
}

func highlights(enriched []domain.EnrichedChunk) []domain.EnrichedChunk {
	ranked := slices.Clone(enriched)
	byImportance(ranked)
	return ranked[:min(highlightCount, len(ranked))]
}
