package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/discovery/internal/analytics"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

type clickStore struct {
	clicks chan *repository.ClickEvent
}

func (s *clickStore) InsertSearchEvent(context.Context, *repository.SearchEvent) error { return nil }

func (s *clickStore) InsertClickEvent(_ context.Context, ev *repository.ClickEvent) error {
	s.clicks <- ev
	return nil
}

func (s *clickStore) PopularTerms(context.Context, time.Time, int, int) ([]domain.PopularTerm, error) {
	return nil, nil
}

func newAnalyticsRouter(store *clickStore) http.Handler {
	rec := analytics.NewRecorder(store, nil, discardLogger())
	h := NewAnalyticsHandler(rec, discardLogger())

	r := chi.NewRouter()
	r.Post("/api/v1/analytics/click", h.Click)
	return r
}

func postClick(router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/click", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestClickEndpoint_Accepted(t *testing.T) {
	store := &clickStore{clicks: make(chan *repository.ClickEvent, 1)}
	router := newAnalyticsRouter(store)

	rr := postClick(router,
		`{"product_id":"`+productID+`","query":"headphones"}`,
		map[string]string{"X-User-ID": "user-1", "X-Session-ID": "sess-1"})

	require.Equal(t, http.StatusAccepted, rr.Code)

	select {
	case ev := <-store.clicks:
		assert.Equal(t, productID, ev.ProductID)
		assert.Equal(t, "headphones", ev.Query)
		assert.Equal(t, "user-1", ev.UserID)
		assert.Equal(t, "sess-1", ev.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for click event")
	}
}

func TestClickEndpoint_MalformedBody(t *testing.T) {
	router := newAnalyticsRouter(&clickStore{clicks: make(chan *repository.ClickEvent, 1)})

	rr := postClick(router, `{broken`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClickEndpoint_MissingProductID(t *testing.T) {
	router := newAnalyticsRouter(&clickStore{clicks: make(chan *repository.ClickEvent, 1)})

	rr := postClick(router, `{"query":"headphones"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClickEndpoint_NonUUIDProductID(t *testing.T) {
	router := newAnalyticsRouter(&clickStore{clicks: make(chan *repository.ClickEvent, 1)})

	rr := postClick(router, `{"product_id":"not-a-uuid"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
