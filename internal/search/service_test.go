package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/discovery/pkg/errors"

	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/engine/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingEngine errors on every call.
type failingEngine struct{}

func (failingEngine) Index(context.Context, *domain.SearchDocument) error { return errors.New("down") }
func (failingEngine) Delete(context.Context, string) error                { return errors.New("down") }
func (failingEngine) Search(context.Context, *domain.SearchQuery) (*domain.SearchResult, error) {
	return nil, errors.New("down")
}
func (failingEngine) BulkIndex(context.Context, []domain.SearchDocument) error {
	return errors.New("down")
}
func (failingEngine) Suggest(context.Context, string, int) ([]domain.Suggestion, error) {
	return nil, errors.New("down")
}

// fakeStore serves canned fallback results.
type fakeStore struct {
	docs  []domain.SearchDocument
	total int
	err   error
	hits  int
}

func (f *fakeStore) GetProduct(context.Context, string) (*domain.Product, error) {
	return nil, apperrors.ErrNotFound
}
func (f *fakeStore) GetProductBySlug(context.Context, string) (*domain.Product, error) {
	return nil, apperrors.ErrNotFound
}
func (f *fakeStore) SearchProducts(context.Context, *domain.SearchQuery) ([]domain.SearchDocument, int, error) {
	f.hits++
	return f.docs, f.total, f.err
}
func (f *fakeStore) ActiveProductPage(context.Context, string, int) ([]domain.SearchDocument, error) {
	return nil, nil
}

// fakeRecorder counts recorded searches.
type fakeRecorder struct {
	searches []string
	counts   []int
	terms    []domain.PopularTerm
	termsErr error
	days     int
	limit    int
}

func (f *fakeRecorder) RecordSearch(query string, resultCount int, _, _ string) {
	f.searches = append(f.searches, query)
	f.counts = append(f.counts, resultCount)
}

func (f *fakeRecorder) PopularTerms(_ context.Context, days, limit int) ([]domain.PopularTerm, error) {
	f.days, f.limit = days, limit
	return f.terms, f.termsErr
}

// mapCache is an in-process Cache for tests.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]byte)} }

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

func seedEngine(t *testing.T, docs ...domain.SearchDocument) *memory.Engine {
	t.Helper()
	eng := memory.New()
	require.NoError(t, eng.BulkIndex(context.Background(), docs))
	return eng
}

func doc(id, name string, price int64) domain.SearchDocument {
	return domain.SearchDocument{ID: id, Name: name, Description: "a product", Price: price}
}

func TestSearch_IndexPath(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500), doc("p-2", "usb cable", 900))
	rec := &fakeRecorder{}
	svc := NewService(eng, &fakeStore{}, cache.NewNoop(), rec, discardLogger())

	res, err := svc.Search(context.Background(), &domain.SearchQuery{Query: "mouse"})

	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "p-1", res.Products[0].ID)
	assert.False(t, res.Fallback)
}

func TestSearch_EmptyQuery_MatchesAll(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500), doc("p-2", "usb cable", 900))
	svc := NewService(eng, &fakeStore{}, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	res, err := svc.Search(context.Background(), &domain.SearchQuery{})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSearch_IndexDown_FallbackFlagged(t *testing.T) {
	store := &fakeStore{docs: []domain.SearchDocument{doc("p-1", "wireless mouse", 2500)}, total: 1}
	rec := &fakeRecorder{}
	svc := NewService(failingEngine{}, store, cache.NewNoop(), rec, discardLogger())

	res, err := svc.Search(context.Background(), &domain.SearchQuery{Query: "mouse"})

	require.NoError(t, err)
	assert.True(t, res.Fallback)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "p-1", res.Products[0].ID)
	assert.Equal(t, 1, store.hits)
}

func TestSearch_BothPathsDown_ServiceUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	svc := NewService(failingEngine{}, store, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	res, err := svc.Search(context.Background(), &domain.SearchQuery{Query: "mouse"})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestSearch_EveryInvocationRecorded(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500))
	rec := &fakeRecorder{}
	c := newMapCache()
	svc := NewService(eng, &fakeStore{}, c, rec, discardLogger())
	ctx := context.Background()

	_, err := svc.Search(ctx, &domain.SearchQuery{Query: "mouse"})
	require.NoError(t, err)
	_, err = svc.Search(ctx, &domain.SearchQuery{Query: "mouse"})
	require.NoError(t, err)

	// The second call is a cache hit but still produces an analytics event.
	assert.Equal(t, []string{"mouse", "mouse"}, rec.searches)
	assert.Equal(t, []int{1, 1}, rec.counts)
}

func TestSearch_CacheHit_SkipsEngine(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500))
	c := newMapCache()
	svc := NewService(eng, &fakeStore{}, c, &fakeRecorder{}, discardLogger())
	ctx := context.Background()

	first, err := svc.Search(ctx, &domain.SearchQuery{Query: "mouse"})
	require.NoError(t, err)

	// Remove the document; a cached result must still be served.
	require.NoError(t, eng.Delete(ctx, "p-1"))

	second, err := svc.Search(ctx, &domain.SearchQuery{Query: "mouse"})
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
}

func TestSearch_FallbackResultNotCached(t *testing.T) {
	store := &fakeStore{docs: []domain.SearchDocument{doc("p-1", "wireless mouse", 2500)}, total: 1}
	c := newMapCache()
	svc := NewService(failingEngine{}, store, c, &fakeRecorder{}, discardLogger())

	_, err := svc.Search(context.Background(), &domain.SearchQuery{Query: "mouse"})

	require.NoError(t, err)
	assert.Empty(t, c.entries, "degraded results must not outlive the outage in cache")
}

func TestSearch_PaginationClampedNotRejected(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500))
	svc := NewService(eng, &fakeStore{}, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	q := &domain.SearchQuery{Query: "mouse", Page: -10, PerPage: 100000, SortBy: "bogus"}
	res, err := svc.Search(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, domain.MaxPerPage, res.PerPage)
}

func TestSuggest_ShortPrefix_Empty(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500))
	svc := NewService(eng, &fakeStore{}, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	out, err := svc.Suggest(context.Background(), "w", 5)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSuggest_ReturnsCompletions(t *testing.T) {
	eng := seedEngine(t, doc("p-1", "wireless mouse", 2500), doc("p-2", "wireless keyboard", 4500))
	svc := NewService(eng, &fakeStore{}, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	out, err := svc.Suggest(context.Background(), "wire", 5)

	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSuggest_EngineDown_EmptyNotError(t *testing.T) {
	svc := NewService(failingEngine{}, &fakeStore{}, cache.NewNoop(), &fakeRecorder{}, discardLogger())

	out, err := svc.Suggest(context.Background(), "wire", 5)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPopularTerms_Delegates(t *testing.T) {
	rec := &fakeRecorder{terms: []domain.PopularTerm{{Term: "mouse", Count: 7}}}
	svc := NewService(memory.New(), &fakeStore{}, cache.NewNoop(), rec, discardLogger())

	terms, err := svc.PopularTerms(context.Background(), 7, 10)

	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "mouse", terms[0].Term)
	assert.Equal(t, 7, rec.days)
	assert.Equal(t, 10, rec.limit)
}

func TestSearchKey_FilterOrderIrrelevant(t *testing.T) {
	cat := "cat-1"
	minP, maxP := int64(100), int64(500)

	a := &domain.SearchQuery{Query: "mouse", CategoryID: &cat, MinPrice: &minP, MaxPrice: &maxP}
	a.Normalize()
	b := &domain.SearchQuery{Query: "mouse", MaxPrice: &maxP, MinPrice: &minP, CategoryID: &cat}
	b.Normalize()

	assert.Equal(t, searchKey(a), searchKey(b))
}
