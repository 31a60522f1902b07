package handlers

import (
	"net/http"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/services"
	"soulcare-backend/pkg/httputil"
)

// ReviewerHandlers exposes counselor roster management.
type ReviewerHandlers struct {
	reviewerService *services.ReviewerService
}

// NewReviewerHandlers creates new ReviewerHandlers.
func NewReviewerHandlers(rs *services.ReviewerService) *ReviewerHandlers {
	return &ReviewerHandlers{reviewerService: rs}
}

// HandleCreateReviewer registers a counselor for the org.
func (h *ReviewerHandlers) HandleCreateReviewer(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}

	var req models.CreateReviewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.reviewerService.CreateReviewer(r.Context(), orgID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleUpdateReviewer adjusts a counselor's availability or capacity.
func (h *ReviewerHandlers) HandleUpdateReviewer(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	reviewerID, ok := uuidParam(w, r, "reviewerID")
	if !ok {
		return
	}

	var req models.UpdateReviewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.reviewerService.UpdateReviewer(r.Context(), orgID, reviewerID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListReviewers returns the org's counselor roster.
func (h *ReviewerHandlers) HandleListReviewers(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}

	resp, err := h.reviewerService.ListReviewers(r.Context(), orgID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
