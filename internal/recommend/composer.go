package recommend

import (
	"context"
	"log/slog"
	"strconv"

	apperrors "github.com/utafrali/discovery/pkg/errors"

	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

const (
	// DefaultLimit is the result count when the caller supplies none.
	DefaultLimit = 10
	// MaxLimit caps how many recommendations one request can ask for.
	MaxLimit = 50

	defaultCollaborativeWeight = 1.2
	defaultContentWeight       = 0.8

	mergedReason = "highly recommended"
)

// Composer fronts the individual strategies: it caches composed results,
// substitutes popularity for cold-start users, and degrades to popularity
// when a strategy produces nothing. Exclusion filtering happens after
// composition so the cached entry stays request-independent.
type Composer struct {
	popularity    *Popularity
	trending      *Trending
	similar       *Similar
	alsoBought    *AlsoBought
	collaborative *Collaborative
	contentBased  *ContentBased

	stats  repository.StatsStore
	cache  cache.Cache
	logger *slog.Logger

	// Merge weights for personalized composition. Tunable, but the defaults
	// are load-bearing for ranking parity across deployments.
	collaborativeWeight float64
	contentWeight       float64
}

func NewComposer(
	catalog repository.CatalogStore,
	stats repository.StatsStore,
	c cache.Cache,
	logger *slog.Logger,
) *Composer {
	return &Composer{
		popularity:          NewPopularity(stats, logger),
		trending:            NewTrending(stats, logger),
		similar:             NewSimilar(catalog, stats, logger),
		alsoBought:          NewAlsoBought(stats, logger),
		collaborative:       NewCollaborative(stats, logger),
		contentBased:        NewContentBased(stats, logger),
		stats:               stats,
		cache:               c,
		logger:              logger,
		collaborativeWeight: defaultCollaborativeWeight,
		contentWeight:       defaultContentWeight,
	}
}

// Popular returns the best-selling products, optionally within a category.
func (c *Composer) Popular(ctx context.Context, categoryID string, limit int, excludeIDs []string) ([]domain.RecommendationCandidate, error) {
	limit = clampLimit(limit)
	key := cache.Key(cache.RecommendationPrefix,
		"op=popular", "cat="+categoryID, "limit="+strconv.Itoa(limit))

	return c.cached(ctx, key, excludeIDs, func(ctx context.Context) ([]domain.RecommendationCandidate, error) {
		var cat *string
		if categoryID != "" {
			cat = &categoryID
		}
		return c.popularity.Ranked(ctx, cat, limit)
	})
}

// Trending returns recently launched products ranked by sales velocity over
// the given window.
func (c *Composer) Trending(ctx context.Context, windowDays, limit int, excludeIDs []string) ([]domain.RecommendationCandidate, error) {
	limit = clampLimit(limit)
	windowDays = clampWindow(windowDays)
	key := cache.Key(cache.RecommendationPrefix,
		"op=trending", "days="+strconv.Itoa(windowDays), "limit="+strconv.Itoa(limit))

	return c.cached(ctx, key, excludeIDs, func(ctx context.Context) ([]domain.RecommendationCandidate, error) {
		return c.trending.Run(ctx, windowDays, limit), nil
	})
}

// Similar returns peers of the given product, falling back to popularity
// when the peer set is empty.
func (c *Composer) Similar(ctx context.Context, productID string, limit int, excludeIDs []string) ([]domain.RecommendationCandidate, error) {
	limit = clampLimit(limit)
	key := cache.Key(cache.RecommendationPrefix,
		"op=similar", "product="+productID, "limit="+strconv.Itoa(limit))

	return c.cached(ctx, key, excludeIDs, func(ctx context.Context) ([]domain.RecommendationCandidate, error) {
		out := c.similar.Run(ctx, productID, limit)
		if len(out) == 0 {
			return c.popularityFallback(ctx, limit)
		}
		return out, nil
	})
}

// AlsoBought returns products frequently bought together with the given
// product. No buyers means an empty list, not an error.
func (c *Composer) AlsoBought(ctx context.Context, productID string, limit int, excludeIDs []string) ([]domain.RecommendationCandidate, error) {
	limit = clampLimit(limit)
	key := cache.Key(cache.RecommendationPrefix,
		"op=also_bought", "product="+productID, "limit="+strconv.Itoa(limit))

	return c.cached(ctx, key, excludeIDs, func(ctx context.Context) ([]domain.RecommendationCandidate, error) {
		return c.alsoBought.Run(ctx, productID, limit), nil
	})
}

// Personalized blends collaborative and content-based results for a user.
// Users with no purchase history get the popularity list instead.
func (c *Composer) Personalized(ctx context.Context, userID string, limit int, excludeIDs []string) ([]domain.RecommendationCandidate, error) {
	limit = clampLimit(limit)
	key := cache.Key(cache.RecommendationPrefix,
		"op=personalized", "user="+userID, "limit="+strconv.Itoa(limit))

	return c.cached(ctx, key, excludeIDs, func(ctx context.Context) ([]domain.RecommendationCandidate, error) {
		history, err := c.stats.UserPurchases(ctx, userID)
		if err != nil {
			c.logger.WarnContext(ctx, "purchase history lookup failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			history = nil
		}
		if len(history) == 0 {
			return c.popularityFallback(ctx, limit)
		}

		collab := c.collaborative.Run(ctx, userID, limit*2)
		content := c.contentBased.Run(ctx, userID, history, limit*2)
		if len(collab) == 0 && len(content) == 0 {
			return c.popularityFallback(ctx, limit)
		}

		merged := c.merge(collab, content)
		sortByScore(merged)
		return truncate(merged, limit), nil
	})
}

// merge starts from the collaborative list and folds the content-based list
// into it. A candidate present in both keeps one entry with the combined
// score and the merged reason.
func (c *Composer) merge(collab, content []domain.RecommendationCandidate) []domain.RecommendationCandidate {
	merged := make([]domain.RecommendationCandidate, len(collab))
	index := make(map[string]int, len(collab))
	for i, cand := range collab {
		cand.Score *= c.collaborativeWeight
		merged[i] = cand
		index[cand.ProductID] = i
	}

	for _, cand := range content {
		if i, ok := index[cand.ProductID]; ok {
			merged[i].Score += cand.Score * c.contentWeight
			merged[i].Reason = mergedReason
			continue
		}
		cand.Score *= c.contentWeight
		merged = append(merged, cand)
		index[cand.ProductID] = len(merged) - 1
	}
	return merged
}

// popularityFallback is the last line of defense. When even the demand query
// fails there is nothing left to serve, which is the one case that surfaces
// as an error.
func (c *Composer) popularityFallback(ctx context.Context, limit int) ([]domain.RecommendationCandidate, error) {
	out, err := c.popularity.Ranked(ctx, nil, limit)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("recommendations unavailable", err)
	}
	return out, nil
}

func (c *Composer) cached(
	ctx context.Context,
	key string,
	excludeIDs []string,
	compute func(context.Context) ([]domain.RecommendationCandidate, error),
) ([]domain.RecommendationCandidate, error) {
	var list []domain.RecommendationCandidate
	hit, err := c.cache.Get(ctx, key, &list)
	if err != nil {
		c.logger.WarnContext(ctx, "recommendation cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	if hit {
		return filterExcluded(list, excludeIDs), nil
	}

	list, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, list, cache.RecommendationTTL); err != nil {
		c.logger.WarnContext(ctx, "recommendation cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return filterExcluded(list, excludeIDs), nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
