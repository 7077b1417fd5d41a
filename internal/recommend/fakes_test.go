package recommend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/discovery/pkg/errors"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// fakeStats is a canned StatsStore. Each query returns its configured rows
// or error and counts invocations.
type fakeStats struct {
	demandRows []repository.DemandRow
	demandErr  error
	demandHits int

	trendingRows []repository.TrendingRow
	trendingErr  error

	similarRows []repository.ProductSnapshot
	similarErr  error

	coRows   []repository.CoPurchaseRow
	coBuyers int
	coErr    error

	purchases    []repository.PurchaseRow
	purchasesErr error

	peerRows   []repository.PeerPurchaseRow
	totalPeers int
	peerErr    error

	contentRows []repository.ProductSnapshot
	contentErr  error

	orders, units int
	oneDemandErr  error

	trendingLimit int
	coLimit       int
	peerLimit     int
}

func (f *fakeStats) DemandRows(_ context.Context, _ *string, _ int) ([]repository.DemandRow, error) {
	f.demandHits++
	return f.demandRows, f.demandErr
}

func (f *fakeStats) TrendingRows(_ context.Context, _, limit int) ([]repository.TrendingRow, error) {
	f.trendingLimit = limit
	return f.trendingRows, f.trendingErr
}

func (f *fakeStats) SimilarCandidates(_ context.Context, _ *domain.Product, _, _ int64, _ int) ([]repository.ProductSnapshot, error) {
	return f.similarRows, f.similarErr
}

func (f *fakeStats) CoPurchaseRows(_ context.Context, _ string, _ time.Time, limit int) ([]repository.CoPurchaseRow, int, error) {
	f.coLimit = limit
	return f.coRows, f.coBuyers, f.coErr
}

func (f *fakeStats) UserPurchases(_ context.Context, _ string) ([]repository.PurchaseRow, error) {
	return f.purchases, f.purchasesErr
}

func (f *fakeStats) PeerPurchaseRows(_ context.Context, _ string, _, _, limit int) ([]repository.PeerPurchaseRow, int, error) {
	f.peerLimit = limit
	return f.peerRows, f.totalPeers, f.peerErr
}

func (f *fakeStats) ContentCandidates(_ context.Context, _ []string, _, _ int64, _ []string, _ int) ([]repository.ProductSnapshot, error) {
	return f.contentRows, f.contentErr
}

func (f *fakeStats) ProductDemand(_ context.Context, _ string) (int, int, error) {
	return f.orders, f.units, f.oneDemandErr
}

// fakeCatalog serves products from a map.
type fakeCatalog struct {
	products map[string]*domain.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeCatalog) GetProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeCatalog) SearchProducts(_ context.Context, _ *domain.SearchQuery) ([]domain.SearchDocument, int, error) {
	return nil, 0, nil
}

func (f *fakeCatalog) ActiveProductPage(_ context.Context, _ string, _ int) ([]domain.SearchDocument, error) {
	return nil, nil
}

// mapCache is an in-process Cache backed by a map, without TTL expiry.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshot(id, name string, price int64) repository.ProductSnapshot {
	return repository.ProductSnapshot{
		ProductID:  id,
		Name:       name,
		Price:      price,
		CategoryID: "cat-1",
	}
}
