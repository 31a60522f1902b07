package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"soulcare-backend/internal/auth"
	"soulcare-backend/internal/services"
	"soulcare-backend/internal/store"
	"soulcare-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// decodeJSON decodes the request body into dst, responding 400 on failure.
// Returns false when the caller should stop handling the request.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid JSON request body")
		return false
	}
	return true
}

// orgAndUserFromContext pulls the authenticated identity injected by the JWT
// middleware, responding 401 when it is missing.
func orgAndUserFromContext(w http.ResponseWriter, r *http.Request) (orgID, userID uuid.UUID, ok bool) {
	orgID, okOrg := auth.GetOrgIDFromContext(r.Context())
	userID, okUser := auth.GetUserIDFromContext(r.Context())
	if !okOrg || !okUser {
		httputil.RespondError(w, http.StatusUnauthorized, "Missing authentication context")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, userID, true
}

// uuidParam parses a chi URL parameter as a UUID, responding 400 on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid "+name+" (expected UUID)")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTenantMismatch):
		// A tenant mismatch is a caller bug, rejected loudly rather than
		// disguised as a not-found.
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrClaimConflict), errors.Is(err, services.ErrAlreadyResolved):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrOwnershipViolation):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrReviewerUnavailable):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrGenerationFailure):
		httputil.RespondError(w, http.StatusBadGateway, "Reply generation failed, please retry")
	case errors.Is(err, services.ErrPersonaNotFound),
		errors.Is(err, services.ErrReviewerNotFound),
		errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
