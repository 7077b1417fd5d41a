package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/discovery/pkg/database"
)

func newStatsFixture(t *testing.T) (*StatsRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStatsRepository(mock), mock
}

func snapshotTestColumns(extra ...string) []string {
	cols := []string{"id", "name", "price", "image_url", "category_id", "category_name", "avg_rating"}
	return append(cols, extra...)
}

func TestStatsRepository_DemandRows(t *testing.T) {
	repo, mock := newStatsFixture(t)

	rows := pgxmock.NewRows(snapshotTestColumns("order_count", "units_sold")).
		AddRow("p-1", "Trail Shoe", int64(12900), "", "cat-outdoor", "Outdoor", 4.2, 12, 30).
		AddRow("p-2", "Water Bottle", int64(1900), "", "cat-outdoor", "Outdoor", 4.8, 5, 9)

	mock.ExpectQuery("FROM products").
		WithArgs(10).
		WillReturnRows(rows)

	out, err := repo.DemandRows(context.Background(), nil, 10)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "p-1", out[0].ProductID)
	assert.Equal(t, 12, out[0].OrderCount)
	assert.Equal(t, 30, out[0].UnitsSold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_DemandRows_CategoryFilter(t *testing.T) {
	repo, mock := newStatsFixture(t)

	mock.ExpectQuery("FROM products").
		WithArgs(10, "cat-outdoor").
		WillReturnRows(pgxmock.NewRows(snapshotTestColumns("order_count", "units_sold")))

	categoryID := "cat-outdoor"
	out, err := repo.DemandRows(context.Background(), &categoryID, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_TrendingRows(t *testing.T) {
	repo, mock := newStatsFixture(t)

	rows := pgxmock.NewRows(snapshotTestColumns("units_in_window", "recent_orders")).
		AddRow("p-1", "Trail Shoe", int64(12900), "", "cat-outdoor", "Outdoor", 4.0, 35, 8)

	mock.ExpectQuery("FROM products").
		WithArgs(7, 10).
		WillReturnRows(rows)

	out, err := repo.TrendingRows(context.Background(), 7, 10)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, 35, out[0].UnitsInWindow)
	assert.Equal(t, 8, out[0].RecentOrders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_CoPurchaseRows(t *testing.T) {
	repo, mock := newStatsFixture(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM orders").
		WithArgs("p-1", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(25))

	rows := pgxmock.NewRows(snapshotTestColumns("buyer_count", "purchase_count")).
		AddRow("p-2", "Water Bottle", int64(1900), "", "cat-outdoor", "Outdoor", 4.8, 10, 14)

	mock.ExpectQuery("WITH buyers AS").
		WithArgs("p-1", since, 30).
		WillReturnRows(rows)

	out, totalBuyers, err := repo.CoPurchaseRows(context.Background(), "p-1", since, 30)
	require.NoError(t, err)

	assert.Equal(t, 25, totalBuyers)
	require.Len(t, out, 1)
	assert.Equal(t, 10, out[0].BuyerCount)
	assert.Equal(t, 14, out[0].PurchaseCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_CoPurchaseRows_NoBuyersSkipsMainQuery(t *testing.T) {
	repo, mock := newStatsFixture(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM orders").
		WithArgs("p-1", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	out, totalBuyers, err := repo.CoPurchaseRows(context.Background(), "p-1", since, 30)
	require.NoError(t, err)

	assert.Zero(t, totalBuyers)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_UserPurchases(t *testing.T) {
	repo, mock := newStatsFixture(t)

	rows := pgxmock.NewRows([]string{"product_id", "category_id", "price"}).
		AddRow("p-1", "cat-outdoor", int64(12900)).
		AddRow("p-2", "cat-audio", int64(19900))

	mock.ExpectQuery("FROM orders").
		WithArgs("user-1").
		WillReturnRows(rows)

	out, err := repo.UserPurchases(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "cat-audio", out[1].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_PeerPurchaseRows_NoPeers(t *testing.T) {
	repo, mock := newStatsFixture(t)

	mock.ExpectQuery("WITH mine AS").
		WithArgs("user-1", 2, 50).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	out, totalPeers, err := repo.PeerPurchaseRows(context.Background(), "user-1", 2, 50, 10)
	require.NoError(t, err)

	assert.Zero(t, totalPeers)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_PeerPurchaseRows(t *testing.T) {
	repo, mock := newStatsFixture(t)

	mock.ExpectQuery("WITH mine AS").
		WithArgs("user-1", 2, 50).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	rows := pgxmock.NewRows(snapshotTestColumns("peer_count", "purchase_count")).
		AddRow("p-9", "Headlamp", int64(3900), "", "cat-outdoor", "Outdoor", 4.1, 4, 6)

	mock.ExpectQuery("WITH mine AS").
		WithArgs("user-1", 2, 50, 10).
		WillReturnRows(rows)

	out, totalPeers, err := repo.PeerPurchaseRows(context.Background(), "user-1", 2, 50, 10)
	require.NoError(t, err)

	assert.Equal(t, 7, totalPeers)
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].PeerCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_ContentCandidates(t *testing.T) {
	repo, mock := newStatsFixture(t)

	rows := pgxmock.NewRows(snapshotTestColumns()).
		AddRow("p-5", "Camp Stove", int64(8900), "", "cat-outdoor", "Outdoor", 4.6)

	mock.ExpectQuery("FROM products").
		WithArgs([]string{"cat-outdoor"}, int64(7000), int64(15000), []string{"p-1"}, 10).
		WillReturnRows(rows)

	out, err := repo.ContentCandidates(context.Background(), []string{"cat-outdoor"}, 7000, 15000, []string{"p-1"}, 10)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "Camp Stove", out[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_ProductDemand(t *testing.T) {
	repo, mock := newStatsFixture(t)

	mock.ExpectQuery("FROM order_items").
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"orders", "units"}).AddRow(12, 30))

	orders, units, err := repo.ProductDemand(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, 12, orders)
	assert.Equal(t, 30, units)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_ProductDemand_QueryError(t *testing.T) {
	repo, mock := newStatsFixture(t)

	mock.ExpectQuery("FROM order_items").
		WithArgs("p-1").
		WillReturnError(errors.New("connection refused"))

	_, _, err := repo.ProductDemand(context.Background(), "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product demand")
	assert.NoError(t, mock.ExpectationsWereMet())
}
