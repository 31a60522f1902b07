package handlers

import (
	"net/http"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/services"
	"soulcare-backend/pkg/httputil"

	"github.com/google/uuid"
)

// QueueHandlers exposes the escalation queue to reviewers: listing, claiming
// and resolving items.
type QueueHandlers struct {
	queueService       *services.QueueService
	dispositionService *services.DispositionService
}

// NewQueueHandlers creates new QueueHandlers.
func NewQueueHandlers(qs *services.QueueService, ds *services.DispositionService) *QueueHandlers {
	return &QueueHandlers{
		queueService:       qs,
		dispositionService: ds,
	}
}

func mapItemToResponse(item *models.EscalationItem) models.EscalationItemResponse {
	return models.EscalationItemResponse{
		ID:                item.ID,
		OrganizationID:    item.OrganizationID,
		PersonaID:         item.PersonaID,
		UserID:            item.UserID,
		UserMessage:       item.UserMessage,
		CandidateReply:    item.CandidateReply,
		Priority:          item.Priority,
		Status:            item.Status,
		ResponseTimeLimit: item.ResponseTimeLimit,
		AssignedReviewer:  item.AssignedReviewer,
		AssignedAt:        item.AssignedAt,
		CreatedAt:         item.CreatedAt,
	}
}

// HandleListQueue returns the org's open items in dequeue order. The reviewer
// identifies themselves with the reviewer_id query parameter.
func (h *QueueHandlers) HandleListQueue(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	reviewerID, err := uuid.Parse(r.URL.Query().Get("reviewer_id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "reviewer_id query parameter is required (UUID)")
		return
	}

	items, err := h.queueService.ListQueue(r.Context(), orgID, reviewerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]models.EscalationItemResponse, 0, len(items))
	for i := range items {
		out = append(out, mapItemToResponse(&items[i]))
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

// HandleClaim attempts an exclusive claim of a pending item for the reviewer.
// A lost race responds 409; the reviewer retries against the next queue item.
func (h *QueueHandlers) HandleClaim(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	var req models.ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReviewerID == uuid.Nil {
		httputil.RespondError(w, http.StatusBadRequest, "reviewer_id is required")
		return
	}

	item, err := h.queueService.Claim(r.Context(), orgID, itemID, req.ReviewerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, mapItemToResponse(item))
}

// HandleResolve applies the reviewer's disposition to a claimed item.
func (h *QueueHandlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	var req models.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReviewerID == uuid.Nil {
		httputil.RespondError(w, http.StatusBadRequest, "reviewer_id is required")
		return
	}

	record, err := h.dispositionService.Resolve(r.Context(), orgID, itemID, req.ReviewerID, req.Action, req.EditedContent)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, mapDispositionToResponse(record))
}

// HandleGetDisposition returns the audit record of a resolved item.
func (h *QueueHandlers) HandleGetDisposition(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}

	record, err := h.dispositionService.GetByItemID(r.Context(), orgID, itemID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, mapDispositionToResponse(record))
}

func mapDispositionToResponse(record *models.DispositionRecord) models.DispositionResponse {
	return models.DispositionResponse{
		ID:               record.ID,
		ItemID:           record.ItemID,
		ReviewerID:       record.ReviewerID,
		Action:           record.Action,
		DeliveredContent: record.DeliveredContent,
		ReviewSeconds:    record.ReviewDuration.Seconds(),
		CreatedAt:        record.CreatedAt,
	}
}
