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

// Custom errors for reviewer management.
var (
	ErrReviewerNotFound = errors.New("reviewer not found")
)

// Default capacity when a reviewer is registered without one.
const defaultMaxConcurrentCases = 5

// ReviewerService manages counselor reviewer records: registration,
// availability and capacity configuration.
type ReviewerService struct {
	store store.Store
}

// NewReviewerService creates a new ReviewerService.
func NewReviewerService(s store.Store) *ReviewerService {
	return &ReviewerService{store: s}
}

func mapReviewerToResponse(r *models.Reviewer) *models.ReviewerResponse {
	return &models.ReviewerResponse{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		UserID:             r.UserID,
		DisplayName:        r.DisplayName,
		MaxConcurrentCases: r.MaxConcurrentCases,
		IsAvailable:        r.IsAvailable,
		Specializations:    r.Specializations,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// CreateReviewer registers a counselor as a queue reviewer.
func (s *ReviewerService) CreateReviewer(ctx context.Context, orgID uuid.UUID, req models.CreateReviewerRequest) (*models.ReviewerResponse, error) {
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display_name cannot be empty", ErrValidation)
	}
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	maxCases := req.MaxConcurrentCases
	if maxCases <= 0 {
		maxCases = defaultMaxConcurrentCases
	}

	reviewer := &models.Reviewer{
		ID:                 uuid.New(),
		OrganizationID:     orgID,
		UserID:             req.UserID,
		DisplayName:        strings.TrimSpace(req.DisplayName),
		MaxConcurrentCases: maxCases,
		IsAvailable:        true,
		Specializations:    req.Specializations,
	}
	if err := s.store.CreateReviewer(ctx, reviewer); err != nil {
		log.Printf("ERROR [ReviewerService] CreateReviewer: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to save reviewer: %w", err)
	}

	log.Printf("[ReviewerService] CreateReviewer: Registered reviewer %s (%s) for org %s", reviewer.ID, reviewer.DisplayName, orgID)
	return mapReviewerToResponse(reviewer), nil
}

// UpdateReviewer applies partial updates to availability and capacity.
func (s *ReviewerService) UpdateReviewer(ctx context.Context, orgID, reviewerID uuid.UUID, req models.UpdateReviewerRequest) (*models.ReviewerResponse, error) {
	if req.MaxConcurrentCases != nil && *req.MaxConcurrentCases <= 0 {
		return nil, fmt.Errorf("%w: max_concurrent_cases must be positive", ErrValidation)
	}

	reviewer, err := s.store.UpdateReviewer(ctx, store.UpdateReviewerParams{
		ID:                 reviewerID,
		OrganizationID:     orgID,
		IsAvailable:        req.IsAvailable,
		MaxConcurrentCases: req.MaxConcurrentCases,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrReviewerNotFound
		case errors.Is(err, store.ErrTenantMismatch):
			return nil, fmt.Errorf("%w: %v", ErrTenantMismatch, err)
		default:
			return nil, fmt.Errorf("failed to update reviewer: %w", err)
		}
	}
	return mapReviewerToResponse(reviewer), nil
}

// ListReviewers retrieves all reviewers for the organization.
func (s *ReviewerService) ListReviewers(ctx context.Context, orgID uuid.UUID) ([]models.ReviewerResponse, error) {
	reviewers, err := s.store.ListReviewersByOrg(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [ReviewerService] ListReviewers: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list reviewers: %w", err)
	}
	out := make([]models.ReviewerResponse, 0, len(reviewers))
	for i := range reviewers {
		out = append(out, *mapReviewerToResponse(&reviewers[i]))
	}
	return out, nil
}
