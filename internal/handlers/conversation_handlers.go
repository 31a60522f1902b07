package handlers

import (
	"net/http"
	"strings"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/services"
	"soulcare-backend/pkg/httputil"
)

// ConversationHandlers exposes the message-submission pipeline.
type ConversationHandlers struct {
	pipeline *services.PipelineService
}

// NewConversationHandlers creates new ConversationHandlers.
func NewConversationHandlers(pipeline *services.PipelineService) *ConversationHandlers {
	return &ConversationHandlers{pipeline: pipeline}
}

// HandleSubmitMessage runs one pipeline turn for the authenticated user.
// Responds with either the delivered reply or the queued escalation item id.
func (h *ConversationHandlers) HandleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	orgID, userID, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	personaID, ok := uuidParam(w, r, "personaID")
	if !ok {
		return
	}

	var req models.SubmitMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		httputil.RespondError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}

	result, err := h.pipeline.SubmitMessage(r.Context(), orgID, personaID, userID, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := models.SubmitMessageResponse{
		MessageID: result.Message.ID,
		RiskLevel: result.Assessment.Level,
	}
	if result.QueuedItem != nil {
		id := result.QueuedItem.ID
		resp.QueuedItemID = &id
		httputil.RespondJSON(w, http.StatusAccepted, resp)
		return
	}
	resp.DeliveredReply = result.DeliveredReply
	httputil.RespondJSON(w, http.StatusOK, resp)
}
