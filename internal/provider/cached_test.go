package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdigest/internal/domain"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Summarize(_ context.Context, text, _ string, _ domain.Options) (domain.Summary, error) {
	p.calls++
	if p.err != nil {
		return domain.Summary{}, p.err
	}
	return domain.Summary{Title: text, Summary: "s", Keywords: []string{"k"}, Importance: domain.Float(0.5)}, nil
}

func TestCached(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldCallInnerOncePerKey", func(t *testing.T) {
		inner := &countingProvider{}
		c, err := NewCached(inner, 8)
		require.NoError(t, err)
		a, err := c.Summarize(ctx, "text", "english", domain.Options{Level: domain.LevelMedium})
		require.NoError(t, err)
		b, err := c.Summarize(ctx, "text", "english", domain.Options{Level: domain.LevelMedium})
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, "counting", c.Name())

		_, _ = c.Summarize(ctx, "text", "english", domain.Options{Level: domain.LevelBrief})
		_, _ = c.Summarize(ctx, "text", "chinese", domain.Options{Level: domain.LevelMedium})
		assert.Equal(t, 3, inner.calls)
		assert.Equal(t, 3, c.Len())
	})
	t.Run("ShouldNotCacheFailures", func(t *testing.T) {
		inner := &countingProvider{err: errors.New("down")}
		c, err := NewCached(inner, 8)
		require.NoError(t, err)
		_, err = c.Summarize(ctx, "text", "english", domain.Options{})
		require.Error(t, err)
		_, err = c.Summarize(ctx, "text", "english", domain.Options{})
		require.Error(t, err)
		assert.Equal(t, 2, inner.calls)
		assert.Equal(t, 0, c.Len())
	})
	t.Run("ShouldIsolateCachedValues", func(t *testing.T) {
		c, err := NewCached(&countingProvider{}, 8)
		require.NoError(t, err)
		first, _ := c.Summarize(ctx, "text", "english", domain.Options{})
		first.Keywords[0] = "mutated"
		second, _ := c.Summarize(ctx, "text", "english", domain.Options{})
		assert.Equal(t, []string{"k"}, second.Keywords)
	})
	t.Run("ShouldSeparateAmbiguousConcatenations", func(t *testing.T) {
		assert.NotEqual(t, keyFor("ab", "c", domain.Options{}), keyFor("a", "bc", domain.Options{}))
	})
}

func TestSelect(t *testing.T) {
	cfg := Config{Remote: RemoteConfig{APIKeyEnv: testKeyEnv}, DisableCache: true}

	t.Run("ShouldFallBackToLocalWithoutKey", func(t *testing.T) {
		t.Setenv(testKeyEnv, "")
		p, err := Select(cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, "local", p.Name())
		assert.False(t, Available(cfg))
	})
	t.Run("ShouldPreferRemoteWithKey", func(t *testing.T) {
		t.Setenv(testKeyEnv, "secret")
		p, err := Select(cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, "remote", p.Name())
		assert.True(t, Available(cfg))
	})
	t.Run("ShouldFailForcedRemoteWithoutKey", func(t *testing.T) {
		t.Setenv(testKeyEnv, "")
		forced := cfg
		forced.Type = TypeRemote
		_, err := Select(forced, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
	t.Run("ShouldRejectUnknownType", func(t *testing.T) {
		bad := cfg
		bad.Type = "psychic"
		_, err := Select(bad, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
	t.Run("ShouldWrapWithCache", func(t *testing.T) {
		p, err := Select(Config{Type: TypeLocal}, nil)
		require.NoError(t, err)
		_, ok := p.(*Cached)
		assert.True(t, ok)
	})
}
