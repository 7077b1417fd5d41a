package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/discovery/pkg/httputil"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/search"
)

const (
	defaultSuggestLimit = 5
	maxSuggestLimit     = 20

	defaultPopularTermsLimit = 10
	maxPopularTermsLimit     = 50
)

// SearchHandler handles HTTP requests for the search endpoints.
type SearchHandler struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *search.Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := &domain.SearchQuery{
		Query:     strings.TrimSpace(r.URL.Query().Get("q")),
		SortBy:    r.URL.Query().Get("sort"),
		UserID:    r.Header.Get("X-User-ID"),
		SessionID: r.Header.Get("X-Session-ID"),
	}

	if v := r.URL.Query().Get("category_id"); v != "" {
		query.CategoryID = &v
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		price, ok := parsePrice(w, "min_price", v)
		if !ok {
			return
		}
		query.MinPrice = &price
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		price, ok := parsePrice(w, "max_price", v)
		if !ok {
			return
		}
		query.MaxPrice = &price
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must not exceed max_price"},
		})
		return
	}

	// Out-of-range pagination and unknown sorts are clamped by Normalize
	// inside the service instead of rejected here.
	query.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	query.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := clampQueryInt(r, "limit", defaultSuggestLimit, maxSuggestLimit)

	suggestions, err := h.service.Suggest(r.Context(), prefix, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}

// PopularTerms handles GET /api/v1/search/popular
func (h *SearchHandler) PopularTerms(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	limit := clampQueryInt(r, "limit", defaultPopularTermsLimit, maxPopularTermsLimit)

	terms, err := h.service.PopularTerms(r.Context(), days, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if terms == nil {
		terms = []domain.PopularTerm{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"terms": terms}})
}

func parsePrice(w http.ResponseWriter, name, raw string) (int64, bool) {
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: name + " must be a valid number"},
		})
		return 0, false
	}
	if price < 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: name + " must not be negative"},
		})
		return 0, false
	}
	return price, true
}

func clampQueryInt(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
