package embed

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"ideagraph-backend/internal/observability"
)

const (
	defaultCacheTTL     = 1 * time.Hour
	defaultCacheCleanup = 10 * time.Minute
)

// Cached wraps an Embedder with a TTL cache keyed by the exact input
// text. Caching is sound because the Embedder contract requires
// deterministic output for identical input.
type Cached struct {
	inner   Embedder
	cache   *gocache.Cache
	metrics *observability.Collector
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps inner with a cache. A nil metrics collector disables
// hit/miss counting.
func NewCached(inner Embedder, ttl time.Duration, metrics *observability.Collector) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cached{
		inner:   inner,
		cache:   gocache.New(ttl, defaultCacheCleanup),
		metrics: metrics,
	}
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if v, found := c.cache.Get(text); found {
		c.hit()
		return v.([]float32), nil
	}
	c.miss()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, gocache.DefaultExpiration)
	return vec, nil
}

// EmbedBatch serves cached entries and forwards only the misses to the
// inner embedder, preserving input order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	result := make([][]float32, len(texts))
	var missed []string
	var missedIdx []int
	for i, text := range texts {
		if v, found := c.cache.Get(text); found {
			c.hit()
			result[i] = v.([]float32)
			continue
		}
		c.miss()
		missed = append(missed, text)
		missedIdx = append(missedIdx, i)
	}
	if len(missed) == 0 {
		return result, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missed)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		c.cache.Set(missed[j], vec, gocache.DefaultExpiration)
		result[missedIdx[j]] = vec
	}
	return result, nil
}

func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

func (c *Cached) hit() {
	if c.metrics != nil {
		c.metrics.EmbedCacheHits.Inc()
	}
}

func (c *Cached) miss() {
	if c.metrics != nil {
		c.metrics.EmbedCacheMisses.Inc()
	}
}
