package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"soulcare-backend/internal/config"
	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Notifier fans escalation-queue events out to the counselor team. The queue's
// own job on a deadline breach is only to detect and flag it; any fallback
// content is the surrounding system's responsibility.
type Notifier interface {
	NotifyExpired(ctx context.Context, item models.EscalationItem)
	NotifyEscalated(ctx context.Context, item models.EscalationItem)
}

// QueueService manages the escalation queue: enqueueing held replies, the
// priority/EDF dequeue ordering, exclusive claims, and the expiry sweep.
type QueueService struct {
	store    store.Store
	cfg      *config.Config
	notifier Notifier // may be nil when alerting is not configured
}

// NewQueueService creates a new QueueService.
func NewQueueService(s store.Store, cfg *config.Config, notifier Notifier) *QueueService {
	return &QueueService{
		store:    s,
		cfg:      cfg,
		notifier: notifier,
	}
}

// priorityForLevel maps risk level to queue priority. Only high and critical
// assessments ever reach the queue.
func priorityForLevel(level models.RiskLevel) (models.Priority, error) {
	switch level {
	case models.RiskLevelCritical:
		return models.PriorityUrgent, nil
	case models.RiskLevelHigh:
		return models.PriorityHigh, nil
	}
	return "", fmt.Errorf("risk level %s does not escalate", level)
}

// windowForPriority returns the configured SLA window for the priority band.
func (s *QueueService) windowForPriority(p models.Priority) time.Duration {
	if p == models.PriorityUrgent {
		return s.cfg.UrgentResponseWindow
	}
	return s.cfg.HighResponseWindow
}

// Enqueue creates a pending escalation item for a message whose assessment
// requires human review. The response deadline is fixed at creation time from
// the per-priority policy window.
func (s *QueueService) Enqueue(ctx context.Context, assessment *models.RiskAssessment, personaID, userID uuid.UUID, userMessage, candidateReply string) (*models.EscalationItem, error) {
	if !assessment.RequiresHumanReview {
		return nil, fmt.Errorf("%w: assessment %s does not require human review", ErrValidation, assessment.ID)
	}
	priority, err := priorityForLevel(assessment.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	item := &models.EscalationItem{
		ID:                uuid.New(),
		OrganizationID:    assessment.OrganizationID,
		PersonaID:         personaID,
		UserID:            userID,
		MessageID:         assessment.MessageID,
		AssessmentID:      assessment.ID,
		UserMessage:       userMessage,
		CandidateReply:    candidateReply,
		Priority:          priority,
		Status:            models.StatusPending,
		ResponseTimeLimit: now.Add(s.windowForPriority(priority)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateEscalationItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create escalation item: %w", err)
	}

	log.Printf("[QueueService] Enqueue: Item %s queued with priority %s, deadline %s (org %s)",
		item.ID, item.Priority, item.ResponseTimeLimit.Format(time.RFC3339), item.OrganizationID)
	return item, nil
}

// ListQueue returns the organization's open items in dequeue order: urgent
// before high, earliest deadline first within each band. The reviewer id is
// validated so a reviewer from another org cannot view the queue.
func (s *QueueService) ListQueue(ctx context.Context, orgID, reviewerID uuid.UUID) ([]models.EscalationItem, error) {
	if _, err := s.store.GetReviewerByID(ctx, reviewerID, orgID); err != nil {
		return nil, mapQueueStoreError(err)
	}
	items, err := s.store.ListOpenEscalationItems(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return items, nil
}

// Claim assigns a pending item exclusively to the reviewer. Availability is
// checked first; capacity is enforced atomically with the claim inside the
// store, so N concurrent claims on one item produce exactly one winner and no
// reviewer ever exceeds their configured maximum concurrent cases.
func (s *QueueService) Claim(ctx context.Context, orgID, itemID, reviewerID uuid.UUID) (*models.EscalationItem, error) {
	reviewer, err := s.store.GetReviewerByID(ctx, reviewerID, orgID)
	if err != nil {
		return nil, mapQueueStoreError(err)
	}
	if !reviewer.IsAvailable {
		return nil, fmt.Errorf("%w: reviewer %s is not available", ErrReviewerUnavailable, reviewerID)
	}

	item, err := s.store.ClaimEscalationItem(ctx, store.ClaimEscalationParams{
		ItemID:             itemID,
		OrganizationID:     orgID,
		ReviewerID:         reviewerID,
		MaxConcurrentCases: reviewer.MaxConcurrentCases,
		Now:                time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyAssigned), errors.Is(err, store.ErrAlreadyTerminal):
			return nil, fmt.Errorf("%w: item %s", ErrClaimConflict, itemID)
		case errors.Is(err, store.ErrAtCapacity):
			return nil, fmt.Errorf("%w: reviewer %s is at capacity", ErrReviewerUnavailable, reviewerID)
		default:
			return nil, mapQueueStoreError(err)
		}
	}

	log.Printf("[QueueService] Claim: Item %s assigned to reviewer %s (org %s)", itemID, reviewerID, orgID)
	return item, nil
}

// SweepOnce expires every non-terminal item past its deadline and alerts the
// counselor channel for each. Safe to run concurrently with claims,
// resolutions and other sweeps: terminal transitions are first-wins in the
// store, so each breached item is expired exactly once.
func (s *QueueService) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.store.ExpireEscalationItems(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("expiry sweep failed: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for _, item := range expired {
		log.Printf("WARN [QueueService] Sweep: Item %s (priority %s, org %s) breached its deadline %s and is now expired",
			item.ID, item.Priority, item.OrganizationID, item.ResponseTimeLimit.Format(time.RFC3339))
	}

	if s.notifier != nil {
		// Alert fan-out is bounded but off the sweep's critical path per item.
		g, alertCtx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, item := range expired {
			item := item
			g.Go(func() error {
				s.notifier.NotifyExpired(alertCtx, item)
				return nil
			})
		}
		_ = g.Wait()
	}

	return len(expired), nil
}

// RunSweeper runs the periodic expiry sweep until the context is cancelled.
// Intended to be started once from main as a background goroutine.
func (s *QueueService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	log.Printf("[QueueService] Sweeper started (interval %s)", s.cfg.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[QueueService] Sweeper stopped.")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Printf("ERROR [QueueService] Sweeper: %v", err)
			}
		}
	}
}

// mapQueueStoreError translates store sentinels into the service taxonomy.
func mapQueueStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrTenantMismatch):
		return fmt.Errorf("%w: %v", ErrTenantMismatch, err)
	default:
		return err
	}
}
