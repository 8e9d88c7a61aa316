package quote

import (
	"context" // Context for Redis operations
	"strings" // Symbol normalization
	"time"    // Cache TTL

	"stocksim/internal/utils" // Redis cache helpers

	"github.com/redis/go-redis/v9" // Redis client
)

// CachedProvider wraps a Provider with a Redis read-through cache, so that
// portfolio views with many holdings do not hit the upstream once per row.
// "Not found" results are not cached; only successful quotes are.
type CachedProvider struct {
	inner Provider      // Upstream provider
	rdb   *redis.Client // Redis client
	ttl   time.Duration // Quote freshness window
}

// NewCachedProvider wraps inner with a Redis cache using the given TTL.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl}
}

// Lookup serves from Redis when a fresh quote is cached, otherwise asks the
// upstream provider and caches the result. Cache failures are ignored: a
// broken cache degrades to uncached lookups, never to a failed request.
func (p *CachedProvider) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	key := "quote:" + strings.ToUpper(strings.TrimSpace(symbol))

	var cached Quote
	if found, err := utils.GetCache(ctx, p.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}

	q, err := p.inner.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, p.rdb, key, q, p.ttl)
	return q, nil
}
