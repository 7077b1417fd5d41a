package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// Service serves product detail lookups through a short-lived cache. The
// indexer drops the cached entries on every product mutation, so a read after
// a stock or price change always hits the store.
type Service struct {
	store  repository.CatalogStore
	cache  cache.Cache
	logger *slog.Logger
}

func NewService(store repository.CatalogStore, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: c, logger: logger}
}

// GetByID returns a product with its rating aggregates, or
// apperrors.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.get(ctx, cache.ProductIDKey(id), func(ctx context.Context) (*domain.Product, error) {
		return s.store.GetProduct(ctx, id)
	})
}

// GetBySlug is GetByID keyed by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.get(ctx, cache.ProductSlugKey(slug), func(ctx context.Context) (*domain.Product, error) {
		return s.store.GetProductBySlug(ctx, slug)
	})
}

func (s *Service) get(ctx context.Context, key string, load func(context.Context) (*domain.Product, error)) (*domain.Product, error) {
	var cached domain.Product
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "product cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	if hit {
		return &cached, nil
	}

	p, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	if err := s.cache.Set(ctx, key, p, cache.ProductTTL); err != nil {
		s.logger.WarnContext(ctx, "product cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return p, nil
}
