package provider

import (
	"context"
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"

	"docdigest/internal/domain"
)

// DefaultCacheSize bounds the number of cached summaries.
const DefaultCacheSize = 512

type cacheKey [32]byte

// Cached memoises successful summaries of another provider. Failures are
// never cached.
type Cached struct {
	inner domain.Provider
	cache *lru.Cache[cacheKey, domain.Summary]
}

// NewCached wraps inner with an LRU cache holding up to size entries.
func NewCached(inner domain.Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, domain.Summary](size)
	if err != nil {
		return nil, fmt.Errorf("provider: create cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Name reports the wrapped provider's name.
func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Summarize(ctx context.Context, text, language string, opts domain.Options) (domain.Summary, error) {
	key := keyFor(text, language, opts)
	if s, ok := c.cache.Get(key); ok {
		return cloneSummary(s), nil
	}
	s, err := c.inner.Summarize(ctx, text, language, opts)
	if err != nil {
		return domain.Summary{}, err
	}
	c.cache.Add(key, cloneSummary(s))
	return s, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len() }

func keyFor(text, language string, opts domain.Options) cacheKey {
	h := blake3.New()
	var n [8]byte
	for _, part := range []string{text, language, string(opts.Level)} {
		binary.LittleEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(part))
	}
	binary.LittleEndian.PutUint64(n[:], uint64(opts.MaxTokens)) // #nosec G115
	_, _ = h.Write(n[:])
	var key cacheKey
	copy(key[:], h.Sum(nil))
	return key
}

func cloneSummary(s domain.Summary) domain.Summary {
	if s.Keywords != nil {
		s.Keywords = append([]string(nil), s.Keywords...)
	}
	if s.Importance != nil {
		v := *s.Importance
		s.Importance = &v
	}
	return s
}
