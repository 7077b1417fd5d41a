package recommend

import (
	"context"
	"log/slog"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

const (
	// DefaultTrendingWindowDays bounds the sales window when the caller does
	// not supply one.
	DefaultTrendingWindowDays = 7
	maxTrendingWindowDays     = 30
)

// Trending surfaces recently launched products that are selling. Only
// products created within the last 30 days with at least one unit sold in the
// window qualify.
type Trending struct {
	stats  repository.StatsStore
	logger *slog.Logger
}

func NewTrending(stats repository.StatsStore, logger *slog.Logger) *Trending {
	return &Trending{stats: stats, logger: logger}
}

func (s *Trending) Run(ctx context.Context, windowDays, limit int) []domain.RecommendationCandidate {
	windowDays = clampWindow(windowDays)

	// The SQL orders by units sold alone; over-fetch so re-scoring with
	// recent orders and rating can promote rows from beyond the limit.
	rows, err := s.stats.TrendingRows(ctx, windowDays, limit*candidatePoolFactor)
	if err != nil {
		s.logger.WarnContext(ctx, "trending strategy failed",
			slog.Int("window_days", windowDays),
			slog.String("error", err.Error()))
		return nil
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		c := candidateFrom(r.ProductSnapshot)
		c.Score = TrendingScore(r.UnitsInWindow, windowDays, r.RecentOrders, r.RatingAvg)
		c.Reason = "trending now"
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit)
}

func clampWindow(days int) int {
	if days < 1 {
		return DefaultTrendingWindowDays
	}
	if days > maxTrendingWindowDays {
		return maxTrendingWindowDays
	}
	return days
}
