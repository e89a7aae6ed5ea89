package distance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/pkg/redis"
)

// Cache is the subset of pkg/redis.Client the decorator needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Cached remembers resolved distances. Cache failures are logged and fall
// through to the wrapped resolver; resolver failures are never cached.
type Cached struct {
	next   quote.DistanceResolver
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next quote.DistanceResolver, cache Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) ResolveDistanceKm(ctx context.Context, postalCode string) (float64, error) {
	key := buildDistanceKey(postalCode)

	var km float64
	err := c.cache.GetJSON(ctx, key, &km)
	switch {
	case err == nil:
		return km, nil
	case !errors.Is(err, redis.ErrCacheMiss):
		c.logger.Warn("Distance cache read failed", zap.String("key", key), zap.Error(err))
	}

	km, err = c.next.ResolveDistanceKm(ctx, postalCode)
	if err != nil {
		return 0, err
	}

	if err := c.cache.SetJSON(ctx, key, km, c.ttl); err != nil {
		c.logger.Warn("Distance cache write failed", zap.String("key", key), zap.Error(err))
	}
	return km, nil
}

func buildDistanceKey(postalCode string) string {
	return fmt.Sprintf("distance:%s", postalCode)
}
