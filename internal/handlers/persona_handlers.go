package handlers

import (
	"net/http"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/services"
	"soulcare-backend/pkg/httputil"
)

// PersonaHandlers exposes persona management and document ingestion.
type PersonaHandlers struct {
	personaService *services.PersonaService
}

// NewPersonaHandlers creates new PersonaHandlers.
func NewPersonaHandlers(ps *services.PersonaService) *PersonaHandlers {
	return &PersonaHandlers{personaService: ps}
}

// HandleCreatePersona creates a persona owned by the calling trainer.
func (h *PersonaHandlers) HandleCreatePersona(w http.ResponseWriter, r *http.Request) {
	orgID, userID, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}

	var req models.CreatePersonaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.personaService.CreatePersona(r.Context(), orgID, userID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleGetPersona returns one persona by id.
func (h *PersonaHandlers) HandleGetPersona(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	personaID, ok := uuidParam(w, r, "personaID")
	if !ok {
		return
	}

	resp, err := h.personaService.GetPersona(r.Context(), orgID, personaID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListPersonas returns all of the org's personas.
func (h *PersonaHandlers) HandleListPersonas(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}

	resp, err := h.personaService.ListPersonas(r.Context(), orgID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleIngestDocument ingests pre-extracted document text as persona training
// context.
func (h *PersonaHandlers) HandleIngestDocument(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	personaID, ok := uuidParam(w, r, "personaID")
	if !ok {
		return
	}

	var req models.IngestDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.personaService.IngestDocument(r.Context(), orgID, personaID, req.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleDeleteDocument removes all chunks ingested from one source document.
func (h *PersonaHandlers) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := orgAndUserFromContext(w, r)
	if !ok {
		return
	}
	personaID, ok := uuidParam(w, r, "personaID")
	if !ok {
		return
	}
	sourceID, ok := uuidParam(w, r, "sourceID")
	if !ok {
		return
	}

	deleted, err := h.personaService.DeleteDocument(r.Context(), orgID, personaID, sourceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"deleted_chunks": deleted})
}
