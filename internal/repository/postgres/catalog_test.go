package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/discovery/pkg/database"
	apperrors "github.com/utafrali/discovery/pkg/errors"
	"github.com/utafrali/discovery/internal/domain"
)

func newCatalogFixture(t *testing.T) (*CatalogRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewCatalogRepository(mock), mock
}

func productRowColumns() []string {
	return []string{
		"id", "name", "slug", "description", "price", "stock_quantity",
		"category_id", "category_name", "category_slug", "image_url",
		"active", "created_at", "updated_at",
		"avg_rating", "rating_count",
		"rating_1", "rating_2", "rating_3", "rating_4", "rating_5",
	}
}

func productRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(productRowColumns()).
		AddRow(
			"p-1", "Trail Shoe", "trail-shoe", "Lightweight trail runner", int64(12900), 40,
			"cat-outdoor", "Outdoor", "outdoor", "https://img.example.com/shoe.jpg",
			true, now, now,
			4.2, 31,
			1, 2, 3, 10, 15,
		)
}

func TestCatalogRepository_GetProduct_Success(t *testing.T) {
	repo, mock := newCatalogFixture(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("FROM products").
		WithArgs("p-1").
		WillReturnRows(productRow(now))

	p, err := repo.GetProduct(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, "Trail Shoe", p.Name)
	assert.Equal(t, int64(12900), p.Price)
	assert.Equal(t, "Outdoor", p.CategoryName)
	assert.Equal(t, 4.2, p.Rating.Average)
	assert.Equal(t, 31, p.Rating.Count)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3, 4: 10, 5: 15}, p.Rating.Distribution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetProduct_NotFound(t *testing.T) {
	repo, mock := newCatalogFixture(t)

	mock.ExpectQuery("FROM products").
		WithArgs("p-missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetProduct(context.Background(), "p-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetProductBySlug_Success(t *testing.T) {
	repo, mock := newCatalogFixture(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("FROM products").
		WithArgs("trail-shoe").
		WillReturnRows(productRow(now))

	p, err := repo.GetProductBySlug(context.Background(), "trail-shoe")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func searchDocColumns() []string {
	return []string{
		"id", "name", "slug", "description", "price", "stock_quantity",
		"category_id", "category_name", "category_slug", "image_url",
		"avg_rating", "rating_count", "created_at", "updated_at", "total_count",
	}
}

func TestCatalogRepository_SearchProducts_QueryAndFilters(t *testing.T) {
	repo, mock := newCatalogFixture(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	categoryID := "cat-outdoor"
	minPrice := int64(1000)
	q := &domain.SearchQuery{
		Query:      "shoe",
		CategoryID: &categoryID,
		MinPrice:   &minPrice,
		Page:       2,
		PerPage:    20,
		SortBy:     domain.SortPriceAsc,
	}

	rows := pgxmock.NewRows(searchDocColumns()).
		AddRow(
			"p-1", "Trail Shoe", "trail-shoe", "Lightweight trail runner", int64(12900), 40,
			"cat-outdoor", "Outdoor", "outdoor", "https://img.example.com/shoe.jpg",
			4.2, 31, now, now, 41,
		)

	mock.ExpectQuery("FROM products").
		WithArgs("%shoe%", categoryID, minPrice, 20, 20).
		WillReturnRows(rows)

	docs, total, err := repo.SearchProducts(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 41, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "Trail Shoe", docs[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_SearchProducts_NoMatches(t *testing.T) {
	repo, mock := newCatalogFixture(t)

	mock.ExpectQuery("FROM products").
		WithArgs("%nothing%", 20, 0).
		WillReturnRows(pgxmock.NewRows(searchDocColumns()))

	docs, total, err := repo.SearchProducts(context.Background(), &domain.SearchQuery{
		Query: "nothing", Page: 1, PerPage: 20,
	})
	require.NoError(t, err)

	assert.Zero(t, total)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_SearchProducts_QueryError(t *testing.T) {
	repo, mock := newCatalogFixture(t)

	mock.ExpectQuery("FROM products").
		WithArgs("%shoe%", 20, 0).
		WillReturnError(errors.New("connection refused"))

	_, _, err := repo.SearchProducts(context.Background(), &domain.SearchQuery{
		Query: "shoe", Page: 1, PerPage: 20,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback search")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_ActiveProductPage(t *testing.T) {
	repo, mock := newCatalogFixture(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{
		"id", "name", "slug", "description", "price", "stock_quantity",
		"category_id", "category_name", "category_slug", "image_url",
		"avg_rating", "rating_count", "created_at", "updated_at",
	}).
		AddRow("p-2", "Trail Shoe", "trail-shoe", "", int64(12900), 40,
			"cat-outdoor", "Outdoor", "outdoor", "", 4.2, 31, now, now).
		AddRow("p-3", "Water Bottle", "water-bottle", "", int64(1900), 200,
			"cat-outdoor", "Outdoor", "outdoor", "", 0.0, 0, now, now)

	mock.ExpectQuery("FROM products").
		WithArgs("p-1", 500).
		WillReturnRows(rows)

	docs, err := repo.ActiveProductPage(context.Background(), "p-1", 500)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "p-2", docs[0].ID)
	assert.Equal(t, "p-3", docs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
