package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
)

// DispositionService applies a counselor's decision to a claimed escalation
// item: it drives the assigned -> terminal transition, writes the immutable
// audit record, and delivers (or suppresses) the reply.
type DispositionService struct {
	store    store.Store
	notifier Notifier // may be nil
}

// NewDispositionService creates a new DispositionService.
func NewDispositionService(s store.Store, notifier Notifier) *DispositionService {
	return &DispositionService{
		store:    s,
		notifier: notifier,
	}
}

// Resolve applies the reviewer's action to the item.
//
//   - approve:  delivers the original candidate reply verbatim
//   - modify:   delivers editedContent in place of the candidate (must be non-empty)
//   - reject:   suppresses delivery entirely
//   - escalate: hands the case to a higher-authority pool, delivering nothing
//
// Resolution is at-most-once: the terminal transition is a first-wins
// compare-and-set in the store, and only the winner writes the disposition
// record, so the record stays 1:1 with the item.
func (s *DispositionService) Resolve(ctx context.Context, orgID, itemID, reviewerID uuid.UUID, action models.DispositionAction, editedContent *string) (*models.DispositionRecord, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	if action == models.ActionModify && (editedContent == nil || strings.TrimSpace(*editedContent) == "") {
		return nil, fmt.Errorf("%w: modify requires non-empty edited_content", ErrValidation)
	}

	now := time.Now()
	item, err := s.store.ResolveEscalationItem(ctx, store.ResolveEscalationParams{
		ItemID:         itemID,
		OrganizationID: orgID,
		ReviewerID:     reviewerID,
		NewStatus:      action.TerminalStatus(),
		Now:            now,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyTerminal):
			return nil, fmt.Errorf("%w: item %s", ErrAlreadyResolved, itemID)
		case errors.Is(err, store.ErrNotAssignee):
			return nil, fmt.Errorf("%w: item %s", ErrOwnershipViolation, itemID)
		case errors.Is(err, store.ErrTenantMismatch):
			return nil, fmt.Errorf("%w: %v", ErrTenantMismatch, err)
		default:
			return nil, fmt.Errorf("failed to resolve escalation item: %w", err)
		}
	}

	// Decide what, if anything, gets delivered.
	var delivered *string
	switch action {
	case models.ActionApprove:
		content := item.CandidateReply
		delivered = &content
	case models.ActionModify:
		content := strings.TrimSpace(*editedContent)
		delivered = &content
	}

	var reviewDuration time.Duration
	if item.AssignedAt != nil {
		reviewDuration = now.Sub(*item.AssignedAt)
	}

	record := &models.DispositionRecord{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		ItemID:           item.ID,
		ReviewerID:       reviewerID,
		Action:           action,
		DeliveredContent: delivered,
		ReviewDuration:   reviewDuration,
		CreatedAt:        now,
	}
	if err := s.store.CreateDispositionRecord(ctx, record); err != nil {
		// The item is already terminal; surface the failure loudly so an
		// operator can reconcile the missing audit record.
		log.Printf("ERROR [DispositionService] Resolve: Item %s resolved to %s but disposition record failed: %v", item.ID, item.Status, err)
		return nil, fmt.Errorf("failed to save disposition record: %w", err)
	}

	// A delivered reply becomes part of the conversation transcript.
	if delivered != nil {
		msg := &models.ConversationMessage{
			ID:             uuid.New(),
			OrganizationID: orgID,
			PersonaID:      item.PersonaID,
			UserID:         item.UserID,
			Role:           models.RoleMessageAI,
			Content:        *delivered,
			CreatedAt:      now,
		}
		if err := s.store.CreateMessage(ctx, msg); err != nil {
			log.Printf("WARN [DispositionService] Resolve: Failed to append delivered reply for item %s to transcript: %v", item.ID, err)
		}
	}

	if action == models.ActionEscalate && s.notifier != nil {
		s.notifier.NotifyEscalated(ctx, *item)
	}

	log.Printf("[DispositionService] Resolve: Item %s resolved as %s by reviewer %s in %s",
		item.ID, action, reviewerID, reviewDuration)
	return record, nil
}

// GetByItemID returns the disposition record for a resolved item.
func (s *DispositionService) GetByItemID(ctx context.Context, orgID, itemID uuid.UUID) (*models.DispositionRecord, error) {
	record, err := s.store.GetDispositionByItemID(ctx, itemID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrTenantMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrTenantMismatch, err)
		}
		return nil, err
	}
	return record, nil
}
