package handlers

import (
	"net/http"
	"time"

	"soulcare-backend/internal/services"
	"soulcare-backend/pkg/httputil"
)

// AnalyticsHandlers exposes the reporting rollup.
type AnalyticsHandlers struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandlers creates new AnalyticsHandlers.
func NewAnalyticsHandlers(as *services.AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analyticsService: as}
}

// HandleGetAnalytics computes the org rollup for the requested window.
// from and to are RFC 3339 query parameters; to defaults to now and from
// defaults to 30 days before to.
func (h *AnalyticsHandlers) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}

	to := time.Now().UTC()
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid to (expected RFC 3339 timestamp)")
			return
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid from (expected RFC 3339 timestamp)")
			return
		}
		from = parsed
	}

	rollup, err := h.analyticsService.GetAnalytics(r.Context(), orgID, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rollup)
}
