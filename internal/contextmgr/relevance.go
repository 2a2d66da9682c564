package contextmgr

import (
	"strings"
	"unicode/utf8"

	"docdigest/internal/domain"
)

const maxQueryKeywords = 10

// extractKeywords keeps the first ten lower-cased query words longer than
// two characters.
func extractKeywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		out = append(out, w)
		if len(out) == maxQueryKeywords {
			break
		}
	}
	return out
}

// relevance scores a chunk against query keywords:
// up to 0.3 for keywords found in the text, up to 0.4 for chunk keywords
// that contain a query keyword, 0.5 for a title match; capped at 1.
func relevance(c domain.EnrichedChunk, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	text := strings.ToLower(c.Text)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			found++
		}
	}
	score := 0.3 * float64(found) / float64(len(keywords))

	if len(c.Keywords) > 0 {
		matched := 0
		for _, ck := range c.Keywords {
			if containsAny(strings.ToLower(ck), keywords) {
				matched++
			}
		}
		score += 0.4 * float64(matched) / float64(len(c.Keywords))
	}

	title := c.Title
	if title == "" {
		title = c.Metadata.Title
	}
	if title != "" && containsAny(strings.ToLower(title), keywords) {
		score += 0.5
	}
	return min(score, 1.0)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
