package chunker

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Detector decides whether a single trimmed line is a section heading.
// Detection is language-biased, so strategies accept any set of detectors.
type Detector interface {
	Name() string
	Match(line string) bool
}

type patternDetector struct {
	name     string
	patterns []*regexp.Regexp
}

func (d patternDetector) Name() string { return d.name }

func (d patternDetector) Match(line string) bool {
	for _, p := range d.patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// ChapterDetector matches numbered chapter headings ("Chapter 3", "第三章").
func ChapterDetector() Detector {
	return patternDetector{name: "chapter", patterns: []*regexp.Regexp{
		regexp.MustCompile(`^第[一二三四五六七八九十百\d]+章`),
		regexp.MustCompile(`^Chapter \d+`),
	}}
}

// NumberedDetector matches numbered headings such as "2. Methods".
func NumberedDetector() Detector {
	return patternDetector{name: "numbered", patterns: []*regexp.Regexp{
		regexp.MustCompile(`^\d+\.\s+\S`),
	}}
}

// TitleCaseDetector matches lines that start upper-case and carry no
// sentence punctuation. It is noisy and only used for splitting, not scoring.
func TitleCaseDetector() Detector {
	return patternDetector{name: "title-case", patterns: []*regexp.Regexp{
		regexp.MustCompile(`^[A-Z][^.!?]*$`),
	}}
}

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func getMarkdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New()
	})
	return markdownParser
}

// MarkdownDetector matches ATX headings ("# Title" through "###### Title").
type MarkdownDetector struct{}

func (MarkdownDetector) Name() string { return "markdown" }

func (MarkdownDetector) Match(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	doc := getMarkdownParser().Parser().Parse(text.NewReader([]byte(line)))
	heading, ok := doc.FirstChild().(*ast.Heading)
	return ok && heading.HasChildren()
}

// StructureDetectors are the strong heading signals used to score structure.
func StructureDetectors() []Detector {
	return []Detector{ChapterDetector(), MarkdownDetector{}, NumberedDetector()}
}

// SectionDetectors are the detectors used to cut sections.
func SectionDetectors() []Detector {
	return append(StructureDetectors(), TitleCaseDetector())
}

func matchAny(detectors []Detector, line string) bool {
	for _, d := range detectors {
		if d.Match(line) {
			return true
		}
	}
	return false
}

// StructureScore counts the lines of text that any detector accepts.
func StructureScore(text string, detectors []Detector) int {
	score := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && matchAny(detectors, line) {
			score++
		}
	}
	return score
}
