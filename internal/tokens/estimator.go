// Package tokens estimates how many model tokens a piece of text occupies.
package tokens

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// DefaultRatio is the characters-per-token ratio used for unknown languages.
const DefaultRatio = 2.5

// Estimator converts text to an approximate token count.
type Estimator interface {
	Estimate(text, language string) int
}

var ratios = map[string]float64{
	"chinese":    1.5,
	"japanese":   2.0,
	"korean":     2.5,
	"english":    4.0,
	"spanish":    4.5,
	"french":     4.2,
	"german":     3.8,
	"italian":    4.3,
	"portuguese": 4.4,
	"russian":    3.2,
	"arabic":     3.5,
	"hindi":      2.8,
	"thai":       2.2,
}

// base language subtag -> canonical name
var bases = map[string]string{
	"zh": "chinese",
	"ja": "japanese",
	"ko": "korean",
	"en": "english",
	"es": "spanish",
	"fr": "french",
	"de": "german",
	"it": "italian",
	"pt": "portuguese",
	"ru": "russian",
	"ar": "arabic",
	"hi": "hindi",
	"th": "thai",
}

var aliases = map[string]string{
	"中文":        "chinese",
	"日本語":       "japanese",
	"한국어":       "korean",
	"español":   "spanish",
	"français":  "french",
	"deutsch":   "german",
	"italiano":  "italian",
	"português": "portuguese",
	"русский":   "russian",
	"العربية":   "arabic",
	"हिन्दी":    "hindi",
	"ไทย":       "thai",
}

// NormalizeLanguage maps a language name, native name or BCP 47 tag to the
// canonical lower-case name used by the ratio table. Unknown input yields "".
func NormalizeLanguage(lang string) string {
	key := strings.ToLower(strings.TrimSpace(lang))
	if key == "" {
		return ""
	}
	if _, ok := ratios[key]; ok {
		return key
	}
	if name, ok := aliases[key]; ok {
		return name
	}
	tag, err := language.Parse(key)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return bases[base.String()]
}

// Ratio returns the characters-per-token ratio for lang.
func Ratio(lang string) float64 {
	if r, ok := ratios[NormalizeLanguage(lang)]; ok {
		return r
	}
	return DefaultRatio
}

// RatioEstimator estimates tokens as ceil(characters / ratio(language)).
type RatioEstimator struct {
	defaultRatio float64
}

// NewRatioEstimator returns an estimator that falls back to DefaultRatio.
func NewRatioEstimator() *RatioEstimator {
	return &RatioEstimator{defaultRatio: DefaultRatio}
}

// Estimate returns the estimated token count of text in lang.
func (e *RatioEstimator) Estimate(text, lang string) int {
	if text == "" {
		return 0
	}
	ratio, ok := ratios[NormalizeLanguage(lang)]
	if !ok {
		ratio = e.defaultRatio
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / ratio))
}
