package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/discovery/pkg/database"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// snapshotColumns is the display column list shared by the strategy queries.
const snapshotColumns = `p.id, p.name, p.price, p.image_url, p.category_id, c.name, COALESCE(rt.avg_rating, 0)`

// ratingJoin is the review aggregate subquery joined by every strategy query.
const ratingJoin = `
	LEFT JOIN (
		SELECT product_id, AVG(rating) AS avg_rating
		FROM reviews
		GROUP BY product_id
	) rt ON rt.product_id = p.id`

// StatsRepository implements repository.StatsStore using PostgreSQL.
type StatsRepository struct {
	pool database.DBTX
}

// NewStatsRepository creates a new PostgreSQL-backed stats reader.
func NewStatsRepository(pool database.DBTX) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// DemandRows returns active products with their 30-day demand aggregates.
func (r *StatsRepository) DemandRows(ctx context.Context, categoryID *string, limit int) ([]repository.DemandRow, error) {
	var (
		categoryFilter string
		args           = []any{limit}
	)
	if categoryID != nil {
		categoryFilter = "AND p.category_id = $2"
		args = append(args, *categoryID)
	}

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(d.order_count, 0), COALESCE(d.units_sold, 0)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		LEFT JOIN (
			SELECT oi.product_id, COUNT(DISTINCT o.id) AS order_count, SUM(oi.quantity) AS units_sold
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.created_at >= now() - interval '30 days'
			GROUP BY oi.product_id
		) d ON d.product_id = p.id
		WHERE p.active %s
		ORDER BY COALESCE(d.order_count, 0) * 10 + COALESCE(d.units_sold, 0) * 5 + COALESCE(rt.avg_rating, 0) * 10 DESC
		LIMIT $1`, snapshotColumns, ratingJoin, categoryFilter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("demand rows: %w", err)
	}
	defer rows.Close()

	var out []repository.DemandRow
	for rows.Next() {
		var row repository.DemandRow
		if err := scanSnapshot(rows, &row.ProductSnapshot, &row.OrderCount, &row.UnitsSold); err != nil {
			return nil, fmt.Errorf("scan demand row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TrendingRows returns products created within the last 30 days that sold at
// least one unit inside the given window.
func (r *StatsRepository) TrendingRows(ctx context.Context, windowDays, limit int) ([]repository.TrendingRow, error) {
	query := fmt.Sprintf(`
		SELECT %s, w.units_in_window, w.recent_orders
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		JOIN (
			SELECT oi.product_id, SUM(oi.quantity) AS units_in_window, COUNT(DISTINCT o.id) AS recent_orders
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.created_at >= now() - make_interval(days => $1)
			GROUP BY oi.product_id
			HAVING SUM(oi.quantity) >= 1
		) w ON w.product_id = p.id
		WHERE p.active AND p.created_at >= now() - interval '30 days'
		ORDER BY w.units_in_window DESC
		LIMIT $2`, snapshotColumns, ratingJoin)

	rows, err := r.pool.Query(ctx, query, windowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("trending rows: %w", err)
	}
	defer rows.Close()

	var out []repository.TrendingRow
	for rows.Next() {
		var row repository.TrendingRow
		if err := scanSnapshot(rows, &row.ProductSnapshot, &row.UnitsInWindow, &row.RecentOrders); err != nil {
			return nil, fmt.Errorf("scan trending row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SimilarCandidates returns active products that share the target's category,
// fall inside the price band, or match one of the target's name tokens.
func (r *StatsRepository) SimilarCandidates(ctx context.Context, target *domain.Product, minPrice, maxPrice int64, limit int) ([]repository.ProductSnapshot, error) {
	patterns := namePatterns(target.Name)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		WHERE p.active
		  AND p.id <> $1
		  AND (p.category_id = $2 OR p.price BETWEEN $3 AND $4 OR p.name ILIKE ANY($5))
		LIMIT $6`, snapshotColumns, ratingJoin)

	rows, err := r.pool.Query(ctx, query, target.ID, target.CategoryID, minPrice, maxPrice, patterns, limit)
	if err != nil {
		return nil, fmt.Errorf("similar candidates: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// CoPurchaseRows returns products co-purchased with productID by buyers since
// the given time, plus the total number of such buyers.
func (r *StatsRepository) CoPurchaseRows(ctx context.Context, productID string, since time.Time, limit int) ([]repository.CoPurchaseRow, int, error) {
	var totalBuyers int
	countQuery := `
		SELECT COUNT(DISTINCT o.user_id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.product_id = $1 AND o.created_at >= $2`

	if err := r.pool.QueryRow(ctx, countQuery, productID, since).Scan(&totalBuyers); err != nil {
		return nil, 0, fmt.Errorf("count buyers: %w", err)
	}
	if totalBuyers == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`
		WITH buyers AS (
			SELECT DISTINCT o.user_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE oi.product_id = $1 AND o.created_at >= $2
		)
		SELECT %s, COUNT(DISTINCT o.user_id), SUM(oi.quantity)
		FROM orders o
		JOIN buyers b ON b.user_id = o.user_id
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		%s
		WHERE oi.product_id <> $1 AND p.active
		GROUP BY p.id, p.name, p.price, p.image_url, p.category_id, c.name, rt.avg_rating
		ORDER BY COUNT(DISTINCT o.user_id) DESC
		LIMIT $3`, snapshotColumns, ratingJoin)

	rows, err := r.pool.Query(ctx, query, productID, since, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("co-purchase rows: %w", err)
	}
	defer rows.Close()

	var out []repository.CoPurchaseRow
	for rows.Next() {
		var row repository.CoPurchaseRow
		if err := scanSnapshot(rows, &row.ProductSnapshot, &row.BuyerCount, &row.PurchaseCount); err != nil {
			return nil, 0, fmt.Errorf("scan co-purchase row: %w", err)
		}
		out = append(out, row)
	}
	return out, totalBuyers, rows.Err()
}

// UserPurchases returns the distinct products a user has purchased.
func (r *StatsRepository) UserPurchases(ctx context.Context, userID string) ([]repository.PurchaseRow, error) {
	query := `
		SELECT DISTINCT oi.product_id, p.category_id, p.price
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE o.user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("user purchases: %w", err)
	}
	defer rows.Close()

	var out []repository.PurchaseRow
	for rows.Next() {
		var row repository.PurchaseRow
		if err := rows.Scan(&row.ProductID, &row.CategoryID, &row.Price); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PeerPurchaseRows finds users sharing at least minShared purchased products
// with userID (capped at peerCap) and returns their other purchases plus the
// peer count.
func (r *StatsRepository) PeerPurchaseRows(ctx context.Context, userID string, minShared, peerCap, limit int) ([]repository.PeerPurchaseRow, int, error) {
	var totalPeers int
	countQuery := `
		WITH mine AS (
			SELECT DISTINCT oi.product_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1
		)
		SELECT COUNT(*) FROM (
			SELECT o.user_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE oi.product_id IN (SELECT product_id FROM mine) AND o.user_id <> $1
			GROUP BY o.user_id
			HAVING COUNT(DISTINCT oi.product_id) >= $2
			LIMIT $3
		) peers`

	if err := r.pool.QueryRow(ctx, countQuery, userID, minShared, peerCap).Scan(&totalPeers); err != nil {
		return nil, 0, fmt.Errorf("count peers: %w", err)
	}
	if totalPeers == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`
		WITH mine AS (
			SELECT DISTINCT oi.product_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1
		),
		peers AS (
			SELECT o.user_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE oi.product_id IN (SELECT product_id FROM mine) AND o.user_id <> $1
			GROUP BY o.user_id
			HAVING COUNT(DISTINCT oi.product_id) >= $2
			LIMIT $3
		)
		SELECT %s, COUNT(DISTINCT o.user_id), SUM(oi.quantity)
		FROM orders o
		JOIN peers pe ON pe.user_id = o.user_id
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		%s
		WHERE oi.product_id NOT IN (SELECT product_id FROM mine) AND p.active
		GROUP BY p.id, p.name, p.price, p.image_url, p.category_id, c.name, rt.avg_rating
		ORDER BY COUNT(DISTINCT o.user_id) DESC
		LIMIT $4`, snapshotColumns, ratingJoin)

	rows, err := r.pool.Query(ctx, query, userID, minShared, peerCap, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("peer purchase rows: %w", err)
	}
	defer rows.Close()

	var out []repository.PeerPurchaseRow
	for rows.Next() {
		var row repository.PeerPurchaseRow
		if err := scanSnapshot(rows, &row.ProductSnapshot, &row.PeerCount, &row.PurchaseCount); err != nil {
			return nil, 0, fmt.Errorf("scan peer purchase row: %w", err)
		}
		out = append(out, row)
	}
	return out, totalPeers, rows.Err()
}

// ContentCandidates returns active products in the given categories and price
// band, excluding products the user already owns.
func (r *StatsRepository) ContentCandidates(ctx context.Context, categoryIDs []string, minPrice, maxPrice int64, excludeIDs []string, limit int) ([]repository.ProductSnapshot, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		WHERE p.active
		  AND (p.category_id = ANY($1) OR p.price BETWEEN $2 AND $3)
		  AND p.id <> ALL($4)
		ORDER BY COALESCE(rt.avg_rating, 0) DESC
		LIMIT $5`, snapshotColumns, ratingJoin)

	rows, err := r.pool.Query(ctx, query, categoryIDs, minPrice, maxPrice, excludeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("content candidates: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ProductDemand returns the 30-day order and unit counts for one product.
func (r *StatsRepository) ProductDemand(ctx context.Context, productID string) (int, int, error) {
	query := `
		SELECT COUNT(DISTINCT o.id), COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1 AND o.created_at >= now() - interval '30 days'`

	var orders, units int
	if err := r.pool.QueryRow(ctx, query, productID).Scan(&orders, &units); err != nil {
		return 0, 0, fmt.Errorf("product demand: %w", err)
	}
	return orders, units, nil
}

// scanSnapshot scans the shared snapshot columns followed by any extra
// integer columns the query appends.
func scanSnapshot(rows pgx.Rows, s *repository.ProductSnapshot, extra ...*int) error {
	dest := []any{&s.ProductID, &s.Name, &s.Price, &s.ImageURL, &s.CategoryID, &s.CategoryName, &s.RatingAvg}
	for _, e := range extra {
		dest = append(dest, e)
	}
	return rows.Scan(dest...)
}

func scanSnapshots(rows pgx.Rows) ([]repository.ProductSnapshot, error) {
	var out []repository.ProductSnapshot
	for rows.Next() {
		var s repository.ProductSnapshot
		if err := scanSnapshot(rows, &s); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// namePatterns turns a product name into ILIKE patterns for its significant
// tokens (length > 2).
func namePatterns(name string) []string {
	var patterns []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if len(tok) > 2 {
			patterns = append(patterns, "%"+tok+"%")
		}
	}
	if patterns == nil {
		patterns = []string{}
	}
	return patterns
}
