// Package summarizer implements the deterministic local provider used when
// no remote summarization service is available.
package summarizer

import (
	"context"
	"fmt"
	"html"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"docdigest/internal/domain"
	"docdigest/internal/tokens"
)

const (
	maxTitleRunes  = 60
	maxKeywords    = 6
	minSentenceLen = 5
)

// Local summarizes text with word-frequency sentence ranking and simple
// lexical heuristics. It never fails and never does I/O.
type Local struct {
	tokenPattern    *regexp.Regexp
	sentenceBreaker *regexp.Regexp
	whitespace      *regexp.Regexp
	digits          *regexp.Regexp
	stopwords       map[string]struct{}
}

// NewLocal creates the local provider.
func NewLocal() *Local {
	return &Local{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentenceBreaker: regexp.MustCompile(`[.!?。！？\n]`),
		whitespace:      regexp.MustCompile(`\s+`),
		digits:          regexp.MustCompile(`\d|[=+\-*/]`),
		stopwords:       defaultStopwords(),
	}
}

// Name identifies the provider.
func (s *Local) Name() string { return "local" }

// Summarize implements domain.Provider.
func (s *Local) Summarize(_ context.Context, text, language string, opts domain.Options) (domain.Summary, error) {
	lang := tokens.NormalizeLanguage(language)
	clean := strings.TrimSpace(s.whitespace.ReplaceAllString(text, " "))
	sentences := s.sentences(clean)
	importance := s.importance(clean)
	return domain.Summary{
		Title:       s.title(sentences, lang),
		Summary:     s.summary(sentences, lang, opts.Level),
		Keywords:    s.keywords(clean, lang),
		Importance:  &importance,
		ContentType: contentType(clean),
	}, nil
}

func (s *Local) sentences(clean string) []string {
	var out []string
	for _, part := range s.sentenceBreaker.Split(clean, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > minSentenceLen {
			out = append(out, part)
		}
	}
	return out
}

func (s *Local) title(sentences []string, lang string) string {
	if len(sentences) == 0 {
		if lang == "chinese" {
			return "文档摘要"
		}
		return "Document Summary"
	}
	title := sentences[0]
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes-3]) + "..."
	}
	return title
}

func sentenceBudget(level domain.SummaryLevel) int {
	switch level {
	case domain.LevelBrief:
		return 3
	case domain.LevelDetailed:
		return 8
	default:
		return 5
	}
}

func (s *Local) summary(sentences []string, lang string, level domain.SummaryLevel) string {
	zh := lang == "chinese"
	if len(sentences) == 0 {
		if zh {
			return "<p>文档内容为空。</p>"
		}
		return "<p>Document content is empty.</p>"
	}
	var b strings.Builder
	if zh {
		b.WriteString("<p>本文档主要内容：</p>")
	} else {
		b.WriteString("<p>Main content:</p>")
	}
	picked := s.Rank(sentences, sentenceBudget(level))
	if len(picked) > 1 {
		b.WriteString("<ul>")
		for _, sent := range picked {
			b.WriteString("<li>" + html.EscapeString(sent) + "</li>")
		}
		b.WriteString("</ul>")
	} else {
		b.WriteString("<p>" + html.EscapeString(picked[0]) + "</p>")
	}
	chars := 0
	for _, sent := range sentences {
		chars += utf8.RuneCountInString(sent)
	}
	if zh {
		fmt.Fprintf(&b, "<p><small>文档包含约 %d 个句子，%d 个字符。</small></p>", len(sentences), chars)
	} else {
		fmt.Fprintf(&b, "<p><small>Document contains approximately %d sentences, %d characters.</small></p>", len(sentences), chars)
	}
	return b.String()
}

// Rank returns up to maxSentences sentences with the highest normalised word
// frequency score, in their original order.
func (s *Local) Rank(sentences []string, maxSentences int) []string {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		sscore := 0.0
		toks := s.tokens(sent)
		for _, tok := range toks {
			sscore += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, maxSentences)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return out
}

func (s *Local) keywords(clean, lang string) []string {
	minLen := 3
	if lang == "chinese" || lang == "japanese" {
		minLen = 1
	}
	count := map[string]int{}
	for _, tok := range s.tokens(clean) {
		if utf8.RuneCountInString(tok) <= minLen {
			continue
		}
		if _, stop := s.stopwords[tok]; stop {
			continue
		}
		count[tok]++
	}
	words := make([]string, 0, len(count))
	for w := range count {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if count[words[i]] != count[words[j]] {
			return count[words[i]] > count[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	if len(words) < 3 {
		defaults := []string{"document", "content", "information"}
		if lang == "chinese" {
			defaults = []string{"文档", "内容", "信息"}
		}
		words = append(words, defaults[:3-len(words)]...)
	}
	return words
}

var importanceCues = []string{
	"重要", "关键", "核心", "主要", "结论", "总结",
	"important", "key", "core", "main", "conclusion", "summary",
}

func (s *Local) importance(clean string) float64 {
	score := math.Min(float64(utf8.RuneCountInString(clean))/1000, 0.5)
	lower := strings.ToLower(clean)
	for _, cue := range importanceCues {
		if strings.Contains(lower, cue) {
			score += 0.3
			break
		}
	}
	if s.digits.MatchString(clean) {
		score += 0.1
	}
	return math.Round(math.Min(math.Max(score, 0.1), 1.0)*1000) / 1000
}

var contentTypeCues = []struct {
	kind string
	cues []string
}{
	{"acknowledgement", []string{"感谢", "致谢", "thank", "acknowledge"}},
	{"introduction", []string{"介绍", "引言", "introduction", "overview"}},
	{"conclusion", []string{"结论", "总结", "conclusion", "summary"}},
	{"example", []string{"例如", "示例", "example", "instance"}},
	{"reference", []string{"参考", "引用", "reference", "citation"}},
}

func contentType(clean string) string {
	lower := strings.ToLower(clean)
	for _, ct := range contentTypeCues {
		for _, cue := range ct.cues {
			if strings.Contains(lower, cue) {
				return ct.kind
			}
		}
	}
	return "main_content"
}

func (s *Local) tokens(text string) []string {
	lower := strings.ToLower(text)
	return s.tokenPattern.FindAllString(lower, -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "have", "has", "which", "their", "there", "they", "them", "what", "when", "where", "also",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
