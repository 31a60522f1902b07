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

// How many retrieved chunks ground one reply, and how many recent turns the
// classifier sees for context.
const (
	retrievalK   = 5
	historyTurns = 10
)

// PipelineService orchestrates one conversation turn:
// retrieve -> generate -> classify -> (deliver | enqueue).
// Each inbound message runs through an independent invocation; the escalation
// queue is the only shared mutable state between turns.
type PipelineService struct {
	store             store.Store
	contextService    *ContextService
	riskService       *RiskService
	queueService      *QueueService
	generator         ai.ReplyGenerator
	generationTimeout time.Duration
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(s store.Store, contextService *ContextService, riskService *RiskService, queueService *QueueService, generator ai.ReplyGenerator, generationTimeout time.Duration) *PipelineService {
	return &PipelineService{
		store:             s,
		contextService:    contextService,
		riskService:       riskService,
		queueService:      queueService,
		generator:         generator,
		generationTimeout: generationTimeout,
	}
}

// SubmitResult is the outcome of one pipeline turn. Exactly one of
// DeliveredReply and QueuedItem is set.
type SubmitResult struct {
	Message        *models.ConversationMessage
	Assessment     *models.RiskAssessment
	DeliveredReply *string
	QueuedItem     *models.EscalationItem
}

// SubmitMessage processes one inbound user message end to end.
//
// The candidate reply is generated before classification so that a high/critical
// verdict can hold the actual reply for counselor review rather than a
// placeholder. Generation failure aborts the turn: a missing reply is never
// delivered and never queued. Classification failure fails safe inside
// RiskService and forces the queueing branch.
func (p *PipelineService) SubmitMessage(ctx context.Context, orgID, personaID, userID uuid.UUID, text string) (*SubmitResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", ErrValidation)
	}

	persona, err := p.store.GetPersonaByID(ctx, personaID, orgID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !persona.IsActive {
		return nil, fmt.Errorf("%w: persona %s is not active", ErrValidation, personaID)
	}

	// The user's turn is recorded before anything can fail downstream.
	userMsg := &models.ConversationMessage{
		ID:             uuid.New(),
		OrganizationID: orgID,
		PersonaID:      personaID,
		UserID:         userID,
		Role:           models.RoleMessageUser,
		Content:        text,
		CreatedAt:      time.Now(),
	}
	if err := p.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// Retrieval degrades to empty context on embedding failure.
	scored, err := p.contextService.Retrieve(ctx, orgID, personaID, text, retrievalK)
	if err != nil {
		log.Printf("WARN [PipelineService] SubmitMessage: Retrieval failed for persona %s, continuing without context: %v", personaID, err)
		scored = nil
	}
	snippets := make([]ai.ContextSnippet, 0, len(scored))
	for _, sc := range scored {
		snippets = append(snippets, ai.ContextSnippet{Content: sc.Chunk.Content, Score: sc.Score})
	}

	systemPrompt := ""
	if persona.SystemPrompt != nil {
		systemPrompt = *persona.SystemPrompt
	}

	genCtx, cancel := context.WithTimeout(ctx, p.generationTimeout)
	candidate, err := p.generator.GenerateReply(genCtx, systemPrompt, text, snippets)
	cancel()
	if err != nil {
		log.Printf("ERROR [PipelineService] SubmitMessage: Generation failed for message %s: %v", userMsg.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}

	history, err := p.recentHistory(ctx, orgID, personaID, userID)
	if err != nil {
		log.Printf("WARN [PipelineService] SubmitMessage: Could not load history for classification: %v", err)
		history = nil
	}

	assessment, err := p.riskService.Classify(ctx, orgID, userMsg.ID, text, history)
	if err != nil {
		return nil, fmt.Errorf("failed to record risk assessment: %w", err)
	}

	result := &SubmitResult{Message: userMsg, Assessment: assessment}

	if assessment.RequiresHumanReview {
		item, err := p.queueService.Enqueue(ctx, assessment, personaID, userID, text, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue escalation item: %w", err)
		}
		result.QueuedItem = item
		log.Printf("[PipelineService] SubmitMessage: Message %s held for review (item %s, level %s)", userMsg.ID, item.ID, assessment.Level)
		return result, nil
	}

	// Auto-delivery branch: persist the AI turn and hand the reply back.
	aiMsg := &models.ConversationMessage{
		ID:             uuid.New(),
		OrganizationID: orgID,
		PersonaID:      personaID,
		UserID:         userID,
		Role:           models.RoleMessageAI,
		Content:        candidate,
		CreatedAt:      time.Now(),
	}
	if err := p.store.CreateMessage(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("failed to save AI reply: %w", err)
	}

	// Delivered turns feed the persona's conversational memory, best-effort.
	exchange := fmt.Sprintf("User: %s\nAssistant: %s", text, candidate)
	if _, err := p.contextService.Ingest(ctx, orgID, personaID, exchange, models.SourceConversation, aiMsg.ID); err != nil {
		log.Printf("WARN [PipelineService] SubmitMessage: Failed to ingest exchange into persona memory: %v", err)
	}

	result.DeliveredReply = &candidate
	log.Printf("[PipelineService] SubmitMessage: Message %s auto-delivered (level %s)", userMsg.ID, assessment.Level)
	return result, nil
}

// recentHistory returns the last few turns of this conversation as plain
// strings for classifier context.
func (p *PipelineService) recentHistory(ctx context.Context, orgID, personaID, userID uuid.UUID) ([]string, error) {
	msgs, err := p.store.ListRecentMessages(ctx, orgID, personaID, userID, historyTurns)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prefix := "User"
		if m.Role == models.RoleMessageAI {
			prefix = "Assistant"
		}
		out = append(out, fmt.Sprintf("%s: %s", prefix, m.Content))
	}
	return out, nil
}
