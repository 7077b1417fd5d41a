package recommend

import "strings"

// Scoring weights. The constants are empirical and kept for behavioral
// compatibility with historical ranking output; treat them as tunable, not
// meaningful.
const (
	popularityOrderWeight  = 10
	popularityUnitWeight   = 5
	popularityRatingWeight = 10

	trendingVelocityWeight = 10
	trendingOrderWeight    = 5
	trendingRatingWeight   = 8

	similarityCategoryScore  = 50
	similarityPriceScoreMax  = 30
	similarityRatingWeight   = 4
	similarityNameThreshold  = 0.3
	similarityPriceBandLower = 0.5
	similarityPriceBandUpper = 2.0
)

// PopularityScore ranks a product by its 30-day demand and rating. A product
// with strictly more orders and equal other factors never scores lower.
func PopularityScore(orders, units int, rating float64) float64 {
	return float64(orders)*popularityOrderWeight +
		float64(units)*popularityUnitWeight +
		rating*popularityRatingWeight
}

// TrendingScore ranks a recently created product by its sales velocity
// inside the window.
func TrendingScore(unitsInWindow, windowDays, recentOrders int, rating float64) float64 {
	if windowDays < 1 {
		windowDays = 1
	}
	return float64(unitsInWindow)/float64(windowDays)*trendingVelocityWeight +
		float64(recentOrders)*trendingOrderWeight +
		rating*trendingRatingWeight
}

// SimilarityScore ranks a candidate against a target product: a shared
// category dominates, price proximity contributes up to 30 points, and the
// rating adds a small bonus.
func SimilarityScore(categoryMatch bool, priceDeltaPct, rating float64) float64 {
	score := rating * similarityRatingWeight
	if categoryMatch {
		score += similarityCategoryScore
	}
	if p := similarityPriceScoreMax - priceDeltaPct; p > 0 {
		score += p
	}
	return score
}

// priceDeltaPct returns the absolute price difference as a percentage of the
// target price.
func priceDeltaPct(target, candidate int64) float64 {
	if target == 0 {
		return 0
	}
	delta := target - candidate
	if delta < 0 {
		delta = -delta
	}
	return float64(delta) / float64(target) * 100
}

// NameSimilarity computes the Dice coefficient over character bigrams of the
// two names, case-insensitive. Returns a value in [0, 1].
func NameSimilarity(a, b string) float64 {
	ba := bigrams(strings.ToLower(a))
	bb := bigrams(strings.ToLower(b))
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	shared := 0
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				shared += m
			} else {
				shared += n
			}
		}
	}

	totalA, totalB := 0, 0
	for _, n := range ba {
		totalA += n
	}
	for _, n := range bb {
		totalB += n
	}

	return 2 * float64(shared) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
