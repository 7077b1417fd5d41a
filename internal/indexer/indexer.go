package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/utafrali/discovery/pkg/errors"

	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/engine"
	"github.com/utafrali/discovery/internal/recommend"
	"github.com/utafrali/discovery/internal/repository"
)

// reindexPageSize is the catalog page size during a full reindex. Pages are
// keyset-paginated so a reindex never holds the whole catalog in memory.
const reindexPageSize = 500

// Indexer keeps the search index consistent with the relational catalog.
// The catalog is the source of truth; the index only ever holds active
// products, and the popularity score stored on a document is recomputed from
// current demand every time the document is written.
type Indexer struct {
	engine  engine.SearchEngine
	catalog repository.CatalogStore
	stats   repository.StatsStore
	cache   cache.Cache
	logger  *slog.Logger
}

func New(
	eng engine.SearchEngine,
	catalog repository.CatalogStore,
	stats repository.StatsStore,
	c cache.Cache,
	logger *slog.Logger,
) *Indexer {
	return &Indexer{engine: eng, catalog: catalog, stats: stats, cache: c, logger: logger}
}

// Upsert re-projects one product into the index. An inactive or missing
// product is removed instead, so calling Upsert after any catalog change
// converges the index on the correct state.
func (ix *Indexer) Upsert(ctx context.Context, productID string) error {
	p, err := ix.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ix.Remove(ctx, productID)
		}
		return fmt.Errorf("load product %s: %w", productID, err)
	}
	if !p.Active {
		return ix.Remove(ctx, productID)
	}

	doc := documentFrom(p)
	doc.Popularity = ix.popularity(ctx, productID, p.Rating.Average)

	if err := ix.engine.Index(ctx, &doc); err != nil {
		return fmt.Errorf("index product %s: %w", productID, err)
	}

	ix.invalidate(ctx, productID, p.Slug)
	ix.logger.InfoContext(ctx, "product indexed", slog.String("product_id", productID))
	return nil
}

// Remove deletes a product's document. Removing an absent document is a
// no-op, so deletion events can be replayed safely.
func (ix *Indexer) Remove(ctx context.Context, productID string) error {
	if err := ix.engine.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete product %s from index: %w", productID, err)
	}

	ix.invalidate(ctx, productID, "")
	ix.logger.InfoContext(ctx, "product removed from index", slog.String("product_id", productID))
	return nil
}

// ReindexAll streams the whole active catalog into the index in pages.
// Individual document failures inside a bulk request are logged by the
// engine and do not abort the run; only a catalog read failure does.
// Returns the number of documents submitted.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	var (
		afterID string
		total   int
	)

	for {
		docs, err := ix.catalog.ActiveProductPage(ctx, afterID, reindexPageSize)
		if err != nil {
			return total, fmt.Errorf("reindex page after %q: %w", afterID, err)
		}
		if len(docs) == 0 {
			break
		}

		for i := range docs {
			docs[i].Popularity = ix.popularity(ctx, docs[i].ID, docs[i].RatingAvg)
		}

		if err := ix.engine.BulkIndex(ctx, docs); err != nil {
			return total, fmt.Errorf("bulk index page after %q: %w", afterID, err)
		}

		total += len(docs)
		afterID = docs[len(docs)-1].ID

		ix.logger.InfoContext(ctx, "reindex page submitted",
			slog.Int("count", len(docs)),
			slog.Int("total", total))
	}

	if err := ix.cache.DeletePrefix(ctx, cache.SearchPrefix); err != nil {
		ix.logger.WarnContext(ctx, "search cache invalidation failed", slog.String("error", err.Error()))
	}

	ix.logger.InfoContext(ctx, "reindex complete", slog.Int("total", total))
	return total, nil
}

// popularity computes the stored popularity score from 30-day demand. A
// failed demand lookup degrades to a rating-only score instead of failing
// the index write.
func (ix *Indexer) popularity(ctx context.Context, productID string, rating float64) float64 {
	orders, units, err := ix.stats.ProductDemand(ctx, productID)
	if err != nil {
		ix.logger.WarnContext(ctx, "demand lookup failed, scoring on rating only",
			slog.String("product_id", productID),
			slog.String("error", err.Error()))
		return recommend.PopularityScore(0, 0, rating)
	}
	return recommend.PopularityScore(orders, units, rating)
}

// invalidate drops the product's cached lookups and coarsely wipes every
// cached list that could contain it. Cache errors are advisory.
func (ix *Indexer) invalidate(ctx context.Context, productID, slug string) {
	keys := []string{cache.ProductIDKey(productID)}
	if slug != "" {
		keys = append(keys, cache.ProductSlugKey(slug))
	}
	if err := ix.cache.Delete(ctx, keys...); err != nil {
		ix.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()))
	}
	for _, prefix := range []string{cache.SearchPrefix, cache.RecommendationPrefix} {
		if err := ix.cache.DeletePrefix(ctx, prefix); err != nil {
			ix.logger.WarnContext(ctx, "list cache invalidation failed",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}
}

func documentFrom(p *domain.Product) domain.SearchDocument {
	return domain.SearchDocument{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CategoryID:    p.CategoryID,
		CategoryName:  p.CategoryName,
		CategorySlug:  p.CategorySlug,
		ImageURL:      p.ImageURL,
		RatingAvg:     p.Rating.Average,
		RatingCount:   p.Rating.Count,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
