package domain

// RecommendationCandidate is a scored product produced by a single strategy
// or by the composer. Candidates are ephemeral: they live per request or per
// cache entry, never longer.
type RecommendationCandidate struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Price        int64   `json:"price"`
	ImageURL     string  `json:"image_url"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	RatingAvg    float64 `json:"rating_avg"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
}
