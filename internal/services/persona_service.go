package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for persona management.
var (
	ErrPersonaNotFound = errors.New("persona not found")
)

// PersonaService manages AI personas and their training material.
type PersonaService struct {
	store          store.Store
	contextService *ContextService
}

// NewPersonaService creates a new PersonaService.
func NewPersonaService(s store.Store, contextService *ContextService) *PersonaService {
	return &PersonaService{
		store:          s,
		contextService: contextService,
	}
}

func mapPersonaToResponse(p *models.Persona) *models.PersonaResponse {
	return &models.PersonaResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		TrainerID:      p.TrainerID,
		Name:           p.Name,
		Description:    p.Description,
		SystemPrompt:   p.SystemPrompt,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreatePersona creates a new persona owned by the calling trainer.
func (s *PersonaService) CreatePersona(ctx context.Context, orgID, trainerID uuid.UUID, req models.CreatePersonaRequest) (*models.PersonaResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}

	persona := &models.Persona{
		ID:             uuid.New(),
		OrganizationID: orgID,
		TrainerID:      trainerID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		SystemPrompt:   req.SystemPrompt,
		IsActive:       true,
	}
	if err := s.store.CreatePersona(ctx, persona); err != nil {
		log.Printf("ERROR [PersonaService] CreatePersona: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to save persona: %w", err)
	}

	log.Printf("[PersonaService] CreatePersona: Created persona %s (%s) for org %s", persona.ID, persona.Name, orgID)
	return mapPersonaToResponse(persona), nil
}

// GetPersona retrieves a persona by id within the organization.
func (s *PersonaService) GetPersona(ctx context.Context, orgID, personaID uuid.UUID) (*models.PersonaResponse, error) {
	persona, err := s.store.GetPersonaByID(ctx, personaID, orgID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrPersonaNotFound
		case errors.Is(err, store.ErrTenantMismatch):
			return nil, fmt.Errorf("%w: %v", ErrTenantMismatch, err)
		default:
			return nil, fmt.Errorf("failed to retrieve persona: %w", err)
		}
	}
	return mapPersonaToResponse(persona), nil
}

// ListPersonas retrieves all personas for the organization.
func (s *PersonaService) ListPersonas(ctx context.Context, orgID uuid.UUID) ([]models.PersonaResponse, error) {
	personas, err := s.store.ListPersonasByOrg(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [PersonaService] ListPersonas: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	out := make([]models.PersonaResponse, 0, len(personas))
	for i := range personas {
		out = append(out, *mapPersonaToResponse(&personas[i]))
	}
	return out, nil
}

// IngestDocument chunks, embeds and stores pre-extracted document text as
// training context for the persona. Text extraction from raw files happens
// upstream of this API.
func (s *PersonaService) IngestDocument(ctx context.Context, orgID, personaID uuid.UUID, text string) (*models.IngestDocumentResponse, error) {
	sourceID := uuid.New()
	chunkIDs, err := s.contextService.Ingest(ctx, orgID, personaID, text, models.SourceDocument, sourceID)
	if err != nil {
		return nil, err
	}
	return &models.IngestDocumentResponse{
		SourceID:   sourceID,
		ChunkIDs:   chunkIDs,
		ChunkCount: len(chunkIDs),
	}, nil
}

// DeleteDocument removes every chunk ingested from one source document.
func (s *PersonaService) DeleteDocument(ctx context.Context, orgID, personaID, sourceID uuid.UUID) (int, error) {
	if _, err := s.store.GetPersonaByID(ctx, personaID, orgID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return 0, ErrPersonaNotFound
		case errors.Is(err, store.ErrTenantMismatch):
			return 0, fmt.Errorf("%w: %v", ErrTenantMismatch, err)
		default:
			return 0, fmt.Errorf("failed to retrieve persona: %w", err)
		}
	}
	return s.contextService.DeleteBySource(ctx, orgID, personaID, sourceID)
}
