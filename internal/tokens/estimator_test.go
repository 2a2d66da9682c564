package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"english": "english",
		"English": "english",
		"en":      "english",
		"en-US":   "english",
		"zh-Hans": "chinese",
		"中文":      "chinese",
		"ja":      "japanese",
		"klingon": "",
		"":        "",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeLanguage(in))
		})
	}
}

func TestRatioEstimator(t *testing.T) {
	e := NewRatioEstimator()
	t.Run("ShouldUseLanguageRatio", func(t *testing.T) {
		assert.Equal(t, 25, e.Estimate(strings.Repeat("a", 100), "english"))
		assert.Equal(t, 67, e.Estimate(strings.Repeat("字", 100), "chinese"))
	})
	t.Run("ShouldCountRunesNotBytes", func(t *testing.T) {
		assert.Equal(t, e.Estimate(strings.Repeat("a", 30), "chinese"), e.Estimate(strings.Repeat("字", 30), "chinese"))
	})
	t.Run("ShouldFallBackToDefaultRatio", func(t *testing.T) {
		assert.Equal(t, 40, e.Estimate(strings.Repeat("a", 100), "unknown"))
		assert.Equal(t, DefaultRatio, Ratio("unknown"))
	})
	t.Run("ShouldReturnZeroForEmptyText", func(t *testing.T) {
		assert.Zero(t, e.Estimate("", "english"))
	})
}
