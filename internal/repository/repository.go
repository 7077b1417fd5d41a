package repository

import (
	"context"
	"time"

	"github.com/utafrali/discovery/internal/domain"
)

// ProductSnapshot holds the denormalized display fields every strategy row
// carries. Each query shape below maps its columns into one of these structs
// exactly once, at the data-access boundary.
type ProductSnapshot struct {
	ProductID    string
	Name         string
	Price        int64
	ImageURL     string
	CategoryID   string
	CategoryName string
	RatingAvg    float64
}

// DemandRow is a product with its demand aggregates over the last 30 days.
type DemandRow struct {
	ProductSnapshot
	OrderCount int
	UnitsSold  int
}

// TrendingRow is a recently created product with demand inside a window.
type TrendingRow struct {
	ProductSnapshot
	UnitsInWindow int
	RecentOrders  int
}

// CoPurchaseRow is a product bought by buyers of some target product.
type CoPurchaseRow struct {
	ProductSnapshot
	BuyerCount    int
	PurchaseCount int
}

// PeerPurchaseRow is a product bought by a user's purchase peers.
type PeerPurchaseRow struct {
	ProductSnapshot
	PeerCount     int
	PurchaseCount int
}

// PurchaseRow is one product from a user's purchase history.
type PurchaseRow struct {
	ProductID  string
	CategoryID string
	Price      int64
}

// CatalogStore provides read-only access to the relational catalog.
type CatalogStore interface {
	// GetProduct returns a product with its rating aggregates, or
	// apperrors.ErrNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// GetProductBySlug is GetProduct keyed by slug.
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// SearchProducts is the relational fallback for the query engine: an
	// ILIKE predicate on name+description combined with the same filters,
	// sort, and pagination the index path applies.
	SearchProducts(ctx context.Context, q *domain.SearchQuery) ([]domain.SearchDocument, int, error)

	// ActiveProductPage returns a page of active products ordered by ID,
	// starting after afterID, for streaming reindex.
	ActiveProductPage(ctx context.Context, afterID string, limit int) ([]domain.SearchDocument, error)
}

// StatsStore provides the demand and co-purchase aggregates the scoring
// strategies rank with.
type StatsStore interface {
	// DemandRows returns active products with 30-day order and unit counts,
	// optionally restricted to a category.
	DemandRows(ctx context.Context, categoryID *string, limit int) ([]DemandRow, error)

	// TrendingRows returns products created within the last 30 days with at
	// least one unit sold inside the window.
	TrendingRows(ctx context.Context, windowDays, limit int) ([]TrendingRow, error)

	// SimilarCandidates returns active products that share the target's
	// category, fall inside the price band, or match one of the target's
	// name tokens. The target itself is excluded.
	SimilarCandidates(ctx context.Context, target *domain.Product, minPrice, maxPrice int64, limit int) ([]ProductSnapshot, error)

	// CoPurchaseRows returns products co-purchased with productID by buyers
	// since the given time, plus the total number of such buyers.
	CoPurchaseRows(ctx context.Context, productID string, since time.Time, limit int) ([]CoPurchaseRow, int, error)

	// UserPurchases returns the user's purchase history.
	UserPurchases(ctx context.Context, userID string) ([]PurchaseRow, error)

	// PeerPurchaseRows finds users sharing at least minShared purchased
	// products with userID (capped at peerCap), and returns their other
	// purchases plus the total peer count.
	PeerPurchaseRows(ctx context.Context, userID string, minShared, peerCap, limit int) ([]PeerPurchaseRow, int, error)

	// ContentCandidates returns active products in the given categories and
	// price band, excluding products the user already owns.
	ContentCandidates(ctx context.Context, categoryIDs []string, minPrice, maxPrice int64, excludeIDs []string, limit int) ([]ProductSnapshot, error)

	// ProductDemand returns the 30-day order and unit counts for one
	// product, for popularity computation at index time.
	ProductDemand(ctx context.Context, productID string) (orders, units int, err error)
}

// SearchEvent is one recorded search invocation.
type SearchEvent struct {
	ID          string
	Query       string
	ResultCount int
	UserID      string
	SessionID   string
	CreatedAt   time.Time
}

// ClickEvent is one recorded result click.
type ClickEvent struct {
	ID        string
	ProductID string
	Query     string
	UserID    string
	SessionID string
	CreatedAt time.Time
}

// AnalyticsStore appends discovery events and aggregates them for popular
// term reporting.
type AnalyticsStore interface {
	InsertSearchEvent(ctx context.Context, ev *SearchEvent) error
	InsertClickEvent(ctx context.Context, ev *ClickEvent) error

	// PopularTerms groups search events since the given time by literal
	// query text, keeping terms with nonzero results seen at least minCount
	// times, ordered by count descending.
	PopularTerms(ctx context.Context, since time.Time, minCount, limit int) ([]domain.PopularTerm, error)
}
