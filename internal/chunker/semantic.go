package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"docdigest/internal/domain"
)

// SemanticConfig configures the structural strategy. Sizes are in runes.
type SemanticConfig struct {
	// MaxChunkSize caps the core of every chunk.
	MaxChunkSize int
	// MinChunkSize is the size a running section must exceed before a new
	// heading may start another section.
	MinChunkSize int
	// OverlapSize is the amount of neighbouring text copied into each side
	// of a chunk. Zero disables overlap.
	OverlapSize int
	// Detectors recognise heading lines. Nil means SectionDetectors().
	Detectors []Detector
}

// DefaultSemanticConfig returns the stock structural settings.
func DefaultSemanticConfig() SemanticConfig {
	return SemanticConfig{
		MaxChunkSize: 4000,
		MinChunkSize: 500,
		OverlapSize:  200,
	}
}

const (
	overlapLead  = "..."
	overlapGap   = "\n\n"
	overlapTrail = "..."
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Semantic splits text into sections at heading lines, splits oversized
// sections at paragraph breaks and pads every chunk with neighbour overlap.
type Semantic struct {
	config SemanticConfig
}

// NewSemantic validates cfg and builds the strategy.
func NewSemantic(cfg SemanticConfig) (*Semantic, error) {
	if cfg.MaxChunkSize < 1 {
		return nil, fmt.Errorf("%w: max chunk size %d too small", domain.ErrInvalidConfig, cfg.MaxChunkSize)
	}
	if cfg.MinChunkSize < 0 || cfg.MinChunkSize >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("%w: min chunk size %d must be in [0,%d)", domain.ErrInvalidConfig, cfg.MinChunkSize, cfg.MaxChunkSize)
	}
	if cfg.OverlapSize < 0 {
		return nil, fmt.Errorf("%w: negative overlap", domain.ErrInvalidConfig)
	}
	if cfg.Detectors == nil {
		cfg.Detectors = SectionDetectors()
	}
	return &Semantic{config: cfg}, nil
}

func (s *Semantic) Name() string { return "semantic" }

type span struct {
	start, end int
	level      domain.SemanticLevel
	title      string
}

// Chunk implements domain.Chunker.
func (s *Semantic) Chunk(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	var cores []span
	for _, sec := range s.sections(text) {
		if runeLen(text, sec.start, sec.end) <= s.config.MaxChunkSize {
			sec.level = domain.LevelSection
			cores = append(cores, sec)
			continue
		}
		cores = append(cores, s.paragraphs(text, sec)...)
	}
	return s.pad(text, cores)
}

func (s *Semantic) sections(text string) []span {
	var out []span
	start, title, size := 0, "", 0
	for pos := 0; pos < len(text); {
		end := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			end = pos + nl + 1
		}
		line := strings.TrimSpace(text[pos:end])
		if line != "" && matchAny(s.config.Detectors, line) {
			switch {
			case size > s.config.MinChunkSize:
				out = append(out, span{start: start, end: pos, title: title})
				start, title, size = pos, line, 0
			case title == "":
				title = line
			}
		}
		size += runeLen(text, pos, end)
		pos = end
	}
	return append(out, span{start: start, end: len(text), title: title})
}

// paragraphs re-accumulates the paragraphs of an oversized section into
// pieces no larger than MaxChunkSize.
func (s *Semantic) paragraphs(text string, sec span) []span {
	limit := s.config.MaxChunkSize
	var out []span
	emit := func(start, end int) {
		if end > start {
			out = append(out, span{start: start, end: end, level: domain.LevelParagraph, title: sec.title})
		}
	}

	cuts := []int{}
	for _, m := range paragraphBreak.FindAllStringIndex(text[sec.start:sec.end], -1) {
		cuts = append(cuts, sec.start+m[1])
	}
	cuts = append(cuts, sec.end)

	cur, prev := sec.start, sec.start
	for _, cut := range cuts {
		if cut <= prev {
			continue
		}
		if prev > cur && runeLen(text, cur, cut) > limit {
			emit(cur, prev)
			cur = prev
		}
		if runeLen(text, prev, cut) > limit {
			for cur < cut {
				next := wordCut(text[:cut], cur, limit)
				emit(cur, next)
				cur = next
			}
		}
		prev = cut
	}
	emit(cur, sec.end)
	return out
}

func (s *Semantic) pad(text string, cores []span) []domain.Chunk {
	out := make([]domain.Chunk, len(cores))
	overlap := s.config.OverlapSize
	for i, c := range cores {
		core := text[c.start:c.end]
		var prefix, suffix string
		if overlap > 0 && i > 0 {
			prev := cores[i-1]
			prefix = overlapLead + tail(text[prev.start:prev.end], overlap) + overlapGap
		}
		if overlap > 0 && i < len(cores)-1 {
			next := cores[i+1]
			suffix = overlapGap + head(text[next.start:next.end], overlap) + overlapTrail
		}
		out[i] = domain.Chunk{
			Text: prefix + core + suffix,
			Metadata: domain.ChunkMetadata{
				StartIndex:    c.start,
				EndIndex:      c.end,
				ChunkIndex:    i,
				SemanticLevel: c.level,
				Title:         c.title,
				OverlapPrefix: len(prefix),
				OverlapSuffix: len(suffix),
			},
		}
	}
	return out
}
