package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"soulcare-backend/internal/ai"
	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
)

// RiskService wraps the external risk model and applies the derivation policy:
//
//	requires_human_review  = level in {high, critical}
//	auto_response_blocked  = level == critical
//
// Classifier failure is treated as critical. An unclassified message must never
// be auto-delivered, so the conservative branch is the only safe fallback.
type RiskService struct {
	store                 store.Store
	model                 ai.RiskModel
	classificationTimeout time.Duration
}

// NewRiskService creates a new RiskService.
func NewRiskService(s store.Store, model ai.RiskModel, classificationTimeout time.Duration) *RiskService {
	return &RiskService{
		store:                 s,
		model:                 model,
		classificationTimeout: classificationTimeout,
	}
}

// Classify scores the message, applies the derivation rules and persists the
// assessment (1:1 with the message, immutable). The returned assessment is
// always usable: on model failure it carries a synthesized critical verdict.
func (s *RiskService) Classify(ctx context.Context, orgID, messageID uuid.UUID, text string, history []string) (*models.RiskAssessment, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, s.classificationTimeout)
	defer cancel()

	verdict, err := s.model.ClassifyRisk(classifyCtx, text, history)
	if err != nil {
		log.Printf("ERROR [RiskService] Classify: Model failed for message %s, failing safe to critical: %v", messageID, err)
		verdict = &ai.RiskVerdict{
			Level:      models.RiskLevelCritical,
			Categories: []models.RiskCategory{models.RiskCategoryOther},
			Confidence: 0,
			Reasoning:  fmt.Sprintf("classifier unavailable (%v); message held for review as a precaution", err),
		}
	}

	assessment := &models.RiskAssessment{
		ID:                  uuid.New(),
		OrganizationID:      orgID,
		MessageID:           messageID,
		Level:               verdict.Level,
		Categories:          verdict.Categories,
		Confidence:          verdict.Confidence,
		Reasoning:           verdict.Reasoning,
		RequiresHumanReview: verdict.Level.AtLeast(models.RiskLevelHigh),
		AutoResponseBlocked: verdict.Level == models.RiskLevelCritical,
		CreatedAt:           time.Now(),
	}

	if err := s.store.CreateRiskAssessment(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to save risk assessment: %w", err)
	}

	log.Printf("[RiskService] Classify: Message %s assessed as %s (review=%t, blocked=%t)",
		messageID, assessment.Level, assessment.RequiresHumanReview, assessment.AutoResponseBlocked)
	return assessment, nil
}
