package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/discovery/pkg/database"
	apperrors "github.com/utafrali/discovery/pkg/errors"
	"github.com/utafrali/discovery/internal/domain"
)

// productColumns is the column list shared by the single-product queries.
const productColumns = `
	p.id, p.name, p.slug, p.description, p.price, p.stock_quantity,
	p.category_id, c.name, c.slug, p.image_url, p.active, p.created_at, p.updated_at,
	COALESCE(AVG(r.rating), 0), COUNT(r.rating),
	COUNT(r.rating) FILTER (WHERE r.rating = 1),
	COUNT(r.rating) FILTER (WHERE r.rating = 2),
	COUNT(r.rating) FILTER (WHERE r.rating = 3),
	COUNT(r.rating) FILTER (WHERE r.rating = 4),
	COUNT(r.rating) FILTER (WHERE r.rating = 5)`

// CatalogRepository implements repository.CatalogStore using PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog reader.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetProduct retrieves a product with its rating aggregates by ID.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN reviews r ON r.product_id = p.id
		WHERE p.id = $1
		GROUP BY p.id, c.name, c.slug`, productColumns)

	return r.scanProduct(ctx, query, id)
}

// GetProductBySlug retrieves a product with its rating aggregates by slug.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN reviews r ON r.product_id = p.id
		WHERE p.slug = $1
		GROUP BY p.id, c.name, c.slug`, productColumns)

	return r.scanProduct(ctx, query, slug)
}

// SearchProducts is the relational fallback search: an ILIKE predicate on
// name and description combined with the same filters, sort, and pagination
// the index path applies.
func (r *CatalogRepository) SearchProducts(ctx context.Context, q *domain.SearchQuery) ([]domain.SearchDocument, int, error) {
	var (
		conditions = []string{"p.active"}
		args       []any
		argIndex   = 1
	)

	if q.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+q.Query+"%")
		argIndex++
	}

	if q.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *q.CategoryID)
		argIndex++
	}

	if q.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *q.MinPrice)
		argIndex++
	}

	if q.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *q.MaxPrice)
		argIndex++
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.description, p.price, p.stock_quantity,
		       p.category_id, c.name, c.slug, p.image_url,
		       COALESCE(rt.avg_rating, 0), COALESCE(rt.rating_count, 0),
		       p.created_at, p.updated_at,
		       count(*) OVER() AS total_count
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN (
			SELECT product_id, AVG(rating) AS avg_rating, COUNT(*) AS rating_count
			FROM reviews
			GROUP BY product_id
		) rt ON rt.product_id = p.id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "),
		fallbackOrderBy(q.SortBy),
		argIndex, argIndex+1,
	)

	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fallback search: %w", err)
	}
	defer rows.Close()

	docs := []domain.SearchDocument{}
	total := 0

	for rows.Next() {
		var d domain.SearchDocument
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Slug, &d.Description, &d.Price, &d.StockQuantity,
			&d.CategoryID, &d.CategoryName, &d.CategorySlug, &d.ImageURL,
			&d.RatingAvg, &d.RatingCount,
			&d.CreatedAt, &d.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan fallback row: %w", err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate fallback rows: %w", err)
	}

	return docs, total, nil
}

// fallbackOrderBy maps a sort mode onto a relational ORDER BY clause. The
// catalog has no stored relevance or popularity score, so relevance falls
// back to recency and popularity to review volume.
func fallbackOrderBy(sortBy string) string {
	switch sortBy {
	case domain.SortPriceAsc:
		return "p.price ASC"
	case domain.SortPriceDesc:
		return "p.price DESC"
	case domain.SortNewest:
		return "p.created_at DESC"
	case domain.SortPopularity:
		return "COALESCE(rt.rating_count, 0) DESC, p.created_at DESC"
	case domain.SortRating:
		return "COALESCE(rt.avg_rating, 0) DESC, COALESCE(rt.rating_count, 0) DESC"
	default:
		return "p.created_at DESC"
	}
}

// ActiveProductPage returns a page of active products ordered by ID, starting
// after afterID. Pass an empty afterID for the first page.
func (r *CatalogRepository) ActiveProductPage(ctx context.Context, afterID string, limit int) ([]domain.SearchDocument, error) {
	query := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.stock_quantity,
		       p.category_id, c.name, c.slug, p.image_url,
		       COALESCE(rt.avg_rating, 0), COALESCE(rt.rating_count, 0),
		       p.created_at, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN (
			SELECT product_id, AVG(rating) AS avg_rating, COUNT(*) AS rating_count
			FROM reviews
			GROUP BY product_id
		) rt ON rt.product_id = p.id
		WHERE p.active AND p.id > $1
		ORDER BY p.id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("active product page: %w", err)
	}
	defer rows.Close()

	docs := []domain.SearchDocument{}
	for rows.Next() {
		var d domain.SearchDocument
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Slug, &d.Description, &d.Price, &d.StockQuantity,
			&d.CategoryID, &d.CategoryName, &d.CategorySlug, &d.ImageURL,
			&d.RatingAvg, &d.RatingCount,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product page row: %w", err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product page rows: %w", err)
	}

	return docs, nil
}

// scanProduct executes a query expected to return a single product row with
// rating aggregates.
func (r *CatalogRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var (
		p    domain.Product
		dist [5]int
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.CategoryName, &p.CategorySlug, &p.ImageURL,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
		&p.Rating.Average, &p.Rating.Count,
		&dist[0], &dist[1], &dist[2], &dist[3], &dist[4],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Rating.Distribution = make(map[int]int, 5)
	for stars, count := range dist {
		p.Rating.Distribution[stars+1] = count
	}

	return &p, nil
}
