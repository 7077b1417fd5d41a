package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/discovery/pkg/httputil"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/recommend"
)

// RecommendationHandler handles HTTP requests for the recommendation
// endpoints. Every endpoint accepts limit and exclude_ids; exclusion is
// applied last, so a heavily excluded response may carry fewer items than
// the requested limit.
type RecommendationHandler struct {
	composer *recommend.Composer
	logger   *slog.Logger
}

// NewRecommendationHandler creates a new recommendation HTTP handler.
func NewRecommendationHandler(composer *recommend.Composer, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		composer: composer,
		logger:   logger,
	}
}

// Popular handles GET /api/v1/recommendations/popular
func (h *RecommendationHandler) Popular(w http.ResponseWriter, r *http.Request) {
	out, err := h.composer.Popular(r.Context(),
		r.URL.Query().Get("category_id"),
		clampQueryInt(r, "limit", recommend.DefaultLimit, recommend.MaxLimit),
		excludeIDs(r),
	)
	h.write(w, r, out, err)
}

// Trending handles GET /api/v1/recommendations/trending
func (h *RecommendationHandler) Trending(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	out, err := h.composer.Trending(r.Context(),
		days,
		clampQueryInt(r, "limit", recommend.DefaultLimit, recommend.MaxLimit),
		excludeIDs(r),
	)
	h.write(w, r, out, err)
}

// Similar handles GET /api/v1/recommendations/similar/{id}
func (h *RecommendationHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	out, err := h.composer.Similar(r.Context(),
		id.String(),
		clampQueryInt(r, "limit", recommend.DefaultLimit, recommend.MaxLimit),
		excludeIDs(r),
	)
	h.write(w, r, out, err)
}

// AlsoBought handles GET /api/v1/recommendations/also-bought/{id}
func (h *RecommendationHandler) AlsoBought(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	out, err := h.composer.AlsoBought(r.Context(),
		id.String(),
		clampQueryInt(r, "limit", recommend.DefaultLimit, recommend.MaxLimit),
		excludeIDs(r),
	)
	h.write(w, r, out, err)
}

// Personalized handles GET /api/v1/recommendations/personalized/{userID}
func (h *RecommendationHandler) Personalized(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParseUUID(w, chi.URLParam(r, "userID"))
	if !ok {
		return
	}
	out, err := h.composer.Personalized(r.Context(),
		userID.String(),
		clampQueryInt(r, "limit", recommend.DefaultLimit, recommend.MaxLimit),
		excludeIDs(r),
	)
	h.write(w, r, out, err)
}

func (h *RecommendationHandler) write(w http.ResponseWriter, r *http.Request, out []domain.RecommendationCandidate, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if out == nil {
		out = []domain.RecommendationCandidate{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"recommendations": out}})
}

// excludeIDs parses the comma-separated exclude_ids parameter. Malformed
// entries are dropped rather than rejected.
func excludeIDs(r *http.Request) []string {
	raw := r.URL.Query().Get("exclude_ids")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
