package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"soulcare-backend/internal/ai"
	"soulcare-backend/internal/config"
	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors keyed by input text, or fallback for
// everything else.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) GenerateReply(ctx context.Context, systemPrompt, message string, contextSnippets []ai.ContextSnippet) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type stubRiskModel struct {
	verdict *ai.RiskVerdict
	err     error
}

func (m *stubRiskModel) ClassifyRisk(ctx context.Context, message string, history []string) (*ai.RiskVerdict, error) {
	if m.err != nil {
		return nil, m.err
	}
	v := *m.verdict
	return &v, nil
}

func testConfig() *config.Config {
	return &config.Config{
		UrgentResponseWindow:  15 * time.Minute,
		HighResponseWindow:    60 * time.Minute,
		SweepInterval:         30 * time.Second,
		GenerationTimeout:     time.Second,
		ClassificationTimeout: time.Second,
		EmbeddingTimeout:      time.Second,
	}
}

func seedPersona(t *testing.T, st *memory.MemoryStore, orgID uuid.UUID) *models.Persona {
	t.Helper()
	p := &models.Persona{
		ID:             uuid.New(),
		OrganizationID: orgID,
		TrainerID:      uuid.New(),
		Name:           "Listener",
		IsActive:       true,
	}
	require.NoError(t, st.CreatePersona(context.Background(), p))
	return p
}

func seedReviewer(t *testing.T, st *memory.MemoryStore, orgID uuid.UUID, maxCases int) *models.Reviewer {
	t.Helper()
	r := &models.Reviewer{
		ID:                 uuid.New(),
		OrganizationID:     orgID,
		UserID:             uuid.New(),
		DisplayName:        "Counselor",
		MaxConcurrentCases: maxCases,
		IsAvailable:        true,
	}
	require.NoError(t, st.CreateReviewer(context.Background(), r))
	return r
}

// seedQueueItem inserts a pending escalation item directly, bypassing Enqueue,
// so tests can control priority and deadline exactly.
func seedQueueItem(t *testing.T, st *memory.MemoryStore, orgID uuid.UUID, priority models.Priority, deadline time.Time) *models.EscalationItem {
	t.Helper()
	now := time.Now()
	item := &models.EscalationItem{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		PersonaID:         uuid.New(),
		UserID:            uuid.New(),
		MessageID:         uuid.New(),
		AssessmentID:      uuid.New(),
		UserMessage:       "I have been feeling very low lately",
		CandidateReply:    "Thank you for sharing that with me.",
		Priority:          priority,
		Status:            models.StatusPending,
		ResponseTimeLimit: deadline,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, st.CreateEscalationItem(context.Background(), item))
	return item
}

// recordingNotifier captures alert calls for assertions. The sweep fans alerts
// out across goroutines, so access is mutex-guarded.
type recordingNotifier struct {
	mu        sync.Mutex
	expired   []uuid.UUID
	escalated []uuid.UUID
}

func (n *recordingNotifier) NotifyExpired(ctx context.Context, item models.EscalationItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, item.ID)
}

func (n *recordingNotifier) NotifyEscalated(ctx context.Context, item models.EscalationItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalated = append(n.escalated, item.ID)
}

func (n *recordingNotifier) expiredCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.expired)
}
