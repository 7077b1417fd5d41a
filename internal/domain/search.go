package domain

import "time"

// SearchDocument is the denormalized projection of a Product stored in the
// search index. Every active product has at most one document with a matching
// ID; inactive or deleted products have none (enforced by the indexer).
type SearchDocument struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	CategoryID    string    `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	CategorySlug  string    `json:"category_slug"`
	ImageURL      string    `json:"image_url"`
	RatingAvg     float64   `json:"rating_avg"`
	RatingCount   int       `json:"rating_count"`
	Popularity    float64   `json:"popularity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sort options for search results.
const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNewest     = "newest"
	SortPopularity = "popularity"
	SortRating     = "rating"
)

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	switch sort {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortPopularity, SortRating:
		return true
	}
	return false
}

// Pagination bounds enforced server-side regardless of client input.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Query      string  `json:"query"`
	CategoryID *string `json:"category_id,omitempty"`
	MinPrice   *int64  `json:"min_price,omitempty"`
	MaxPrice   *int64  `json:"max_price,omitempty"`
	SortBy     string  `json:"sort_by"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`

	// UserID and SessionID are only used for analytics, never for matching.
	UserID    string `json:"-"`
	SessionID string `json:"-"`
}

// Normalize clamps pagination, defaults the sort mode, and leaves filters as
// given. The engine is permissive at its boundary: out-of-range values are
// clamped and unknown sort modes default to relevance instead of erroring.
func (q *SearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if !IsValidSort(q.SortBy) {
		q.SortBy = SortRelevance
	}
}

// SearchResult holds the paginated search response. Fallback is true when the
// result was produced by the relational fallback path instead of the index.
type SearchResult struct {
	Products []SearchDocument `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
	TookMs   int64            `json:"took_ms"`
	Fallback bool             `json:"fallback"`
}

// Suggestion is a single autocomplete completion.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// PopularTerm is an aggregated search term with its occurrence count.
type PopularTerm struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
