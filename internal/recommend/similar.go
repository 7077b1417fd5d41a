package recommend

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/utafrali/discovery/pkg/errors"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// candidatePoolFactor over-fetches candidates wherever the SQL ordering is
// only a proxy for the final score, so post-filtering and Go-side re-sorting
// still leave enough results.
const candidatePoolFactor = 3

// Similar finds peers of a target product. A peer qualifies when it shares
// the category, sits within 0.5x-2.0x of the target price, or its name is
// close enough to the target name.
type Similar struct {
	catalog repository.CatalogStore
	stats   repository.StatsStore
	logger  *slog.Logger
}

func NewSimilar(catalog repository.CatalogStore, stats repository.StatsStore, logger *slog.Logger) *Similar {
	return &Similar{catalog: catalog, stats: stats, logger: logger}
}

func (s *Similar) Run(ctx context.Context, productID string, limit int) []domain.RecommendationCandidate {
	target, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "similar strategy failed to load target",
				slog.String("product_id", productID),
				slog.String("error", err.Error()))
		}
		return nil
	}
	if !target.Active {
		return nil
	}

	minPrice := int64(float64(target.Price) * similarityPriceBandLower)
	maxPrice := int64(float64(target.Price) * similarityPriceBandUpper)

	rows, err := s.stats.SimilarCandidates(ctx, target, minPrice, maxPrice, limit*candidatePoolFactor)
	if err != nil {
		s.logger.WarnContext(ctx, "similar strategy failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()))
		return nil
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		if r.ProductID == target.ID {
			continue
		}
		categoryMatch := r.CategoryID == target.CategoryID
		inPriceBand := r.Price >= minPrice && r.Price <= maxPrice
		if !categoryMatch && !inPriceBand && NameSimilarity(target.Name, r.Name) < similarityNameThreshold {
			continue
		}
		c := candidateFrom(r)
		c.Score = SimilarityScore(categoryMatch, priceDeltaPct(target.Price, r.Price), r.RatingAvg)
		c.Reason = "similar to " + target.Name
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit)
}
