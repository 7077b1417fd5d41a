package recommend

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

const (
	// coPurchaseWindow bounds how far back co-purchase pairs are counted.
	coPurchaseWindow = 6 * 30 * 24 * time.Hour

	alsoBoughtUserWeight     = 100
	alsoBoughtPurchaseWeight = 10
	alsoBoughtRatingWeight   = 20
)

// AlsoBought ranks products frequently bought together with a target
// product, counting buyers over the last six months.
type AlsoBought struct {
	stats  repository.StatsStore
	logger *slog.Logger
	now    func() time.Time
}

func NewAlsoBought(stats repository.StatsStore, logger *slog.Logger) *AlsoBought {
	return &AlsoBought{stats: stats, logger: logger, now: time.Now}
}

func (s *AlsoBought) Run(ctx context.Context, productID string, limit int) []domain.RecommendationCandidate {
	since := s.now().Add(-coPurchaseWindow)

	// The SQL orders by buyer count alone; over-fetch so re-scoring with
	// purchase counts and rating can promote rows from beyond the limit.
	rows, totalBuyers, err := s.stats.CoPurchaseRows(ctx, productID, since, limit*candidatePoolFactor)
	if err != nil {
		s.logger.WarnContext(ctx, "also-bought strategy failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()))
		return nil
	}
	if totalBuyers == 0 {
		return nil
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		c := candidateFrom(r.ProductSnapshot)
		c.Score = float64(r.BuyerCount)/float64(totalBuyers)*alsoBoughtUserWeight +
			float64(r.PurchaseCount)*alsoBoughtPurchaseWeight +
			r.RatingAvg/5*alsoBoughtRatingWeight
		c.Reason = "frequently bought together"
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit)
}
