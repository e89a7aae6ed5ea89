package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"privatize-quote/internal/quote"
	"privatize-quote/pkg/redis"
)

const (
	catalogCacheKey = "catalog:snapshot"
	catalogFetchers = 4
	catalogService  = "catalog"
)

// Cache is the subset of pkg/redis.Client used for the catalog snapshot.
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// LoadCatalog reads every category, every accompaniment's option tree and
// every beverage and keg size into one snapshot. Any provider failure is a
// *quote.ServiceUnavailableError; a partial catalog is never returned.
func LoadCatalog(ctx context.Context, provider quote.CatalogProvider) (*quote.CatalogSnapshot, error) {
	data := quote.CatalogData{Options: map[int64][]quote.Option{}}

	for _, c := range quote.Categories {
		if c == quote.CategoryBeverageSize {
			continue
		}
		products, err := provider.ListProducts(ctx, c)
		if err != nil {
			return nil, unavailable(err)
		}
		data.Products = append(data.Products, products...)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFetchers)

	for _, p := range data.Products {
		p := p
		switch p.Category {
		case quote.CategoryAccompaniment:
			g.Go(func() error {
				tree, err := provider.GetOptionTree(gctx, p.ID)
				if err != nil {
					return err
				}
				mu.Lock()
				data.Options[p.ID] = tree
				mu.Unlock()
				return nil
			})
		case quote.CategoryBeverage, quote.CategoryKeg:
			g.Go(func() error {
				sizes, err := provider.GetBeverageSizes(gctx, p.ID)
				if err != nil {
					return err
				}
				mu.Lock()
				data.Sizes = append(data.Sizes, sizes...)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}

	return quote.NewCatalogSnapshot(data), nil
}

// LoadCachedCatalog serves the snapshot from Redis when present, otherwise
// loads it from the provider and caches it.
func LoadCachedCatalog(ctx context.Context, provider quote.CatalogProvider, cache Cache, ttl time.Duration, logger *zap.Logger) (*quote.CatalogSnapshot, error) {
	var data quote.CatalogData
	err := cache.GetJSON(ctx, catalogCacheKey, &data)
	if err == nil {
		logger.Debug("Catalog served from cache", zap.Int("products", len(data.Products)))
		return quote.NewCatalogSnapshot(data), nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		logger.Warn("Catalog cache read failed", zap.Error(err))
	}

	snapshot, err := LoadCatalog(ctx, provider)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, catalogCacheKey, snapshot.Data(), ttl); err != nil {
		logger.Warn("Failed to cache catalog", zap.Error(err))
	}
	return snapshot, nil
}

// InvalidateCatalog drops the cached snapshot.
func InvalidateCatalog(ctx context.Context, cache Cache) error {
	if err := cache.Del(ctx, catalogCacheKey); err != nil {
		return fmt.Errorf("service.InvalidateCatalog: %w", err)
	}
	return nil
}

func unavailable(err error) error {
	var su *quote.ServiceUnavailableError
	if errors.As(err, &su) {
		return err
	}
	return &quote.ServiceUnavailableError{Service: catalogService, Err: err}
}
