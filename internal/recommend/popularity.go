package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// Popularity ranks products by their demand over the last 30 days. It is the
// fallback of last resort for every other strategy, so it must never fail: any
// store error is logged and an empty slice returned.
type Popularity struct {
	stats  repository.StatsStore
	logger *slog.Logger
}

func NewPopularity(stats repository.StatsStore, logger *slog.Logger) *Popularity {
	return &Popularity{stats: stats, logger: logger}
}

func (s *Popularity) Run(ctx context.Context, categoryID *string, limit int) []domain.RecommendationCandidate {
	out, err := s.Ranked(ctx, categoryID, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "popularity strategy failed", slog.String("error", err.Error()))
		return nil
	}
	return out
}

// Ranked is Run with the store error exposed, for callers that use
// popularity as the last fallback and must surface its failure.
func (s *Popularity) Ranked(ctx context.Context, categoryID *string, limit int) ([]domain.RecommendationCandidate, error) {
	rows, err := s.stats.DemandRows(ctx, categoryID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		c := candidateFrom(r.ProductSnapshot)
		c.Score = PopularityScore(r.OrderCount, r.UnitsSold, r.RatingAvg)
		c.Reason = popularityReason(r.ProductSnapshot, categoryID)
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit), nil
}

func popularityReason(p repository.ProductSnapshot, categoryID *string) string {
	if categoryID != nil && p.CategoryName != "" {
		return fmt.Sprintf("bestseller in %s", p.CategoryName)
	}
	return "popular right now"
}

func candidateFrom(p repository.ProductSnapshot) domain.RecommendationCandidate {
	return domain.RecommendationCandidate{
		ProductID:    p.ProductID,
		Name:         p.Name,
		Price:        p.Price,
		ImageURL:     p.ImageURL,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		RatingAvg:    p.RatingAvg,
	}
}

func sortByScore(list []domain.RecommendationCandidate) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
}

func truncate(list []domain.RecommendationCandidate, limit int) []domain.RecommendationCandidate {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func filterExcluded(list []domain.RecommendationCandidate, excludeIDs []string) []domain.RecommendationCandidate {
	if len(excludeIDs) == 0 {
		return list
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	out := list[:0:0]
	for _, c := range list {
		if _, skip := excluded[c.ProductID]; !skip {
			out = append(out, c)
		}
	}
	return out
}
