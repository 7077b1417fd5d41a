package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/discovery/pkg/httputil"
	"github.com/utafrali/discovery/internal/indexer"
)

// IndexHandler exposes the index maintenance endpoints. They are meant for
// operators and the event consumer's manual fallback, not for end users.
type IndexHandler struct {
	indexer *indexer.Indexer
	logger  *slog.Logger
}

// NewIndexHandler creates a new index maintenance HTTP handler.
func NewIndexHandler(ix *indexer.Indexer, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{
		indexer: ix,
		logger:  logger,
	}
}

// Reindex handles POST /api/v1/index/reindex. The reindex runs in the
// background; the request only acknowledges the start.
func (h *IndexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx := context.Background()
		total, err := h.indexer.ReindexAll(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed",
				slog.Int("indexed", total),
				slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}

// UpsertProduct handles POST /api/v1/index/{id}. The product is re-read from
// the catalog, so the request carries no body.
func (h *IndexHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.indexer.Upsert(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "indexed"}})
}

// RemoveProduct handles DELETE /api/v1/index/{id}. Removing an absent
// document succeeds.
func (h *IndexHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.indexer.Remove(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "removed"}})
}
