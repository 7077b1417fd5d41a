package recommend

import (
	"context"
	"log/slog"
	"sort"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

const (
	contentCategoryScore = 50
	contentPriceScoreMax = 30
	contentRatingWeight  = 4

	// Spend band around the user's average purchase price.
	contentPriceBandLower = 0.7
	contentPriceBandUpper = 1.5

	// At most this many preferred categories are derived from history.
	contentMaxCategories = 3
)

// ContentBased recommends unowned products from the user's preferred
// categories priced near their average spend. Preferences are derived from
// purchase history, so the caller must supply it.
type ContentBased struct {
	stats  repository.StatsStore
	logger *slog.Logger
}

func NewContentBased(stats repository.StatsStore, logger *slog.Logger) *ContentBased {
	return &ContentBased{stats: stats, logger: logger}
}

func (s *ContentBased) Run(ctx context.Context, userID string, history []repository.PurchaseRow, limit int) []domain.RecommendationCandidate {
	if len(history) == 0 {
		return nil
	}

	categories := preferredCategories(history, contentMaxCategories)
	avgSpend := averagePrice(history)
	minPrice := int64(float64(avgSpend) * contentPriceBandLower)
	maxPrice := int64(float64(avgSpend) * contentPriceBandUpper)

	owned := make([]string, 0, len(history))
	for _, p := range history {
		owned = append(owned, p.ProductID)
	}

	rows, err := s.stats.ContentCandidates(ctx, categories, minPrice, maxPrice, owned, limit*candidatePoolFactor)
	if err != nil {
		s.logger.WarnContext(ctx, "content-based strategy failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}

	preferred := make(map[string]struct{}, len(categories))
	for _, id := range categories {
		preferred[id] = struct{}{}
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		c := candidateFrom(r)
		// Candidates qualify by category or by price band alone; only the
		// former earns the category points.
		c.Score = priceProximity(avgSpend, r.Price) + r.RatingAvg*contentRatingWeight
		if _, ok := preferred[r.CategoryID]; ok {
			c.Score += contentCategoryScore
		}
		c.Reason = "based on your interests"
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit)
}

// preferredCategories returns the most frequently purchased categories,
// frequency descending with category ID as a deterministic tiebreak.
func preferredCategories(history []repository.PurchaseRow, max int) []string {
	counts := make(map[string]int)
	for _, p := range history {
		if p.CategoryID != "" {
			counts[p.CategoryID]++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if len(ids) > max {
		ids = ids[:max]
	}
	return ids
}

func averagePrice(history []repository.PurchaseRow) int64 {
	var total int64
	for _, p := range history {
		total += p.Price
	}
	return total / int64(len(history))
}

// priceProximity awards up to contentPriceScoreMax points the closer the
// candidate's price sits to the user's average spend.
func priceProximity(avgSpend, price int64) float64 {
	if p := contentPriceScoreMax - priceDeltaPct(avgSpend, price); p > 0 {
		return p
	}
	return 0
}
