package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/discovery/pkg/httputil"
	"github.com/utafrali/discovery/pkg/validator"
	"github.com/utafrali/discovery/internal/analytics"
)

// AnalyticsHandler accepts click feedback from storefront clients.
type AnalyticsHandler struct {
	recorder *analytics.Recorder
	logger   *slog.Logger
}

// NewAnalyticsHandler creates a new analytics HTTP handler.
func NewAnalyticsHandler(rec *analytics.Recorder, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		recorder: rec,
		logger:   logger,
	}
}

// ClickRequest is the JSON request body for a result click.
type ClickRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Query     string `json:"query"`
}

// Click handles POST /api/v1/analytics/click. Recording is asynchronous, so
// the response only acknowledges receipt.
func (h *AnalyticsHandler) Click(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.recorder.RecordClick(req.ProductID, req.Query, r.Header.Get("X-User-ID"), r.Header.Get("X-Session-ID"))

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "recorded"}})
}
