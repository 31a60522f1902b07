package services

import (
	"context"
	"testing"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessage(t *testing.T, st *memory.MemoryStore, orgID, personaID, userID uuid.UUID, role models.MessageRole, at time.Time) {
	t.Helper()
	require.NoError(t, st.CreateMessage(context.Background(), &models.ConversationMessage{
		ID:             uuid.New(),
		OrganizationID: orgID,
		PersonaID:      personaID,
		UserID:         userID,
		Role:           role,
		Content:        "text",
		CreatedAt:      at,
	}))
}

func seedDisposition(t *testing.T, st *memory.MemoryStore, orgID, reviewerID uuid.UUID, action models.DispositionAction, reviewSeconds float64, at time.Time) {
	t.Helper()
	require.NoError(t, st.CreateDispositionRecord(context.Background(), &models.DispositionRecord{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ItemID:         uuid.New(),
		ReviewerID:     reviewerID,
		Action:         action,
		ReviewDuration: time.Duration(reviewSeconds * float64(time.Second)),
		CreatedAt:      at,
	}))
}

func TestGetAnalyticsDailyUsage(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewAnalyticsService(st)
	orgID := uuid.New()
	personaA, personaB := uuid.New(), uuid.New()
	userX, userY := uuid.New(), uuid.New()

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	// Day 1: two conversations (A/X and B/X), three user turns, one AI turn.
	seedMessage(t, st, orgID, personaA, userX, models.RoleMessageUser, day1)
	seedMessage(t, st, orgID, personaA, userX, models.RoleMessageAI, day1.Add(time.Minute))
	seedMessage(t, st, orgID, personaA, userX, models.RoleMessageUser, day1.Add(2*time.Minute))
	seedMessage(t, st, orgID, personaB, userX, models.RoleMessageUser, day1.Add(time.Hour))
	// Day 2: one conversation (A/Y).
	seedMessage(t, st, orgID, personaA, userY, models.RoleMessageUser, day2)

	require.NoError(t, st.CreateEscalationItem(context.Background(), &models.EscalationItem{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		PersonaID:         personaA,
		UserID:            userX,
		MessageID:         uuid.New(),
		AssessmentID:      uuid.New(),
		Priority:          models.PriorityHigh,
		Status:            models.StatusPending,
		ResponseTimeLimit: day1.Add(time.Hour),
		CreatedAt:         day1.Add(5 * time.Minute),
		UpdatedAt:         day1.Add(5 * time.Minute),
	}))

	rollup, err := svc.GetAnalytics(context.Background(), orgID, day1.Add(-time.Hour), day2.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rollup.DailyUsage, 2)

	d1 := rollup.DailyUsage[0]
	assert.Equal(t, "2026-08-01", d1.Date)
	assert.Equal(t, 3, d1.UserMessageCount)
	assert.Equal(t, 1, d1.AIMessageCount)
	assert.Equal(t, 2, d1.ConversationDays)

	d2 := rollup.DailyUsage[1]
	assert.Equal(t, "2026-08-02", d2.Date)
	assert.Equal(t, 1, d2.UserMessageCount)
	assert.Equal(t, 0, d2.AIMessageCount)
	assert.Equal(t, 1, d2.ConversationDays)

	assert.Equal(t, 1, d1.EscalationCount)
	assert.Equal(t, 0, d2.EscalationCount)
}

func TestGetAnalyticsReviewerStats(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewAnalyticsService(st)
	orgID := uuid.New()
	fast, slow := uuid.New(), uuid.New()
	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	seedDisposition(t, st, orgID, fast, models.ActionApprove, 30, at)
	seedDisposition(t, st, orgID, fast, models.ActionModify, 90, at.Add(time.Minute))
	seedDisposition(t, st, orgID, slow, models.ActionReject, 600, at.Add(2*time.Minute))
	seedDisposition(t, st, orgID, slow, models.ActionEscalate, 200, at.Add(3*time.Minute))

	rollup, err := svc.GetAnalytics(context.Background(), orgID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rollup.ReviewerStats, 2)

	byID := make(map[uuid.UUID]models.ReviewerPerformance)
	for _, perf := range rollup.ReviewerStats {
		byID[perf.ReviewerID] = perf
	}

	fastPerf := byID[fast]
	assert.Equal(t, 2, fastPerf.CasesResolved)
	assert.Equal(t, 1, fastPerf.ApprovedCount)
	assert.Equal(t, 1, fastPerf.ModifiedCount)
	assert.InDelta(t, 60.0, fastPerf.AvgReviewSeconds, 0.01)

	slowPerf := byID[slow]
	assert.Equal(t, 2, slowPerf.CasesResolved)
	assert.Equal(t, 1, slowPerf.RejectedCount)
	assert.Equal(t, 1, slowPerf.EscalatedCount)
	assert.InDelta(t, 400.0, slowPerf.AvgReviewSeconds, 0.01)
}

func TestGetAnalyticsCategoryTriggersAndExpired(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewAnalyticsService(st)
	orgID := uuid.New()
	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	mkAssessment := func(categories ...models.RiskCategory) {
		require.NoError(t, st.CreateRiskAssessment(context.Background(), &models.RiskAssessment{
			ID:             uuid.New(),
			OrganizationID: orgID,
			MessageID:      uuid.New(),
			Level:          models.RiskLevelHigh,
			Categories:     categories,
			CreatedAt:      at,
		}))
	}
	mkAssessment(models.RiskCategorySelfHarm, models.RiskCategoryCrisis)
	mkAssessment(models.RiskCategorySelfHarm)
	mkAssessment(models.RiskCategorySubstanceAbuse)

	// One expired and one still-open item.
	expired := seedQueueItem(t, st, orgID, models.PriorityUrgent, at)
	seedQueueItem(t, st, orgID, models.PriorityHigh, time.Now().Add(2*time.Hour))
	_, err := st.ExpireEscalationItems(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	got, err := st.GetEscalationItemByID(context.Background(), expired.ID, orgID)
	require.NoError(t, err)
	require.Equal(t, models.StatusExpired, got.Status)

	rollup, err := svc.GetAnalytics(context.Background(), orgID, at.Add(-24*time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, rollup.CategoryTriggers[models.RiskCategorySelfHarm])
	assert.Equal(t, 1, rollup.CategoryTriggers[models.RiskCategoryCrisis])
	assert.Equal(t, 1, rollup.CategoryTriggers[models.RiskCategorySubstanceAbuse])
	assert.Equal(t, 1, rollup.ExpiredItemCount)
}

func TestGetAnalyticsRecomputeIsIdempotent(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewAnalyticsService(st)
	orgID := uuid.New()
	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	seedMessage(t, st, orgID, uuid.New(), uuid.New(), models.RoleMessageUser, at)
	seedDisposition(t, st, orgID, uuid.New(), models.ActionApprove, 45, at)

	from, to := at.Add(-time.Hour), at.Add(time.Hour)
	first, err := svc.GetAnalytics(context.Background(), orgID, from, to)
	require.NoError(t, err)
	second, err := svc.GetAnalytics(context.Background(), orgID, from, to)
	require.NoError(t, err)

	assert.Equal(t, first.DailyUsage, second.DailyUsage)
	assert.Equal(t, first.ReviewerStats, second.ReviewerStats)
	assert.Equal(t, first.CategoryTriggers, second.CategoryTriggers)
	assert.Equal(t, first.ExpiredItemCount, second.ExpiredItemCount)
}

func TestGetAnalyticsRejectsInvertedRange(t *testing.T) {
	svc := NewAnalyticsService(memory.NewMemoryStore())
	now := time.Now()

	_, err := svc.GetAnalytics(context.Background(), uuid.New(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.GetAnalytics(context.Background(), uuid.New(), now, now)
	assert.ErrorIs(t, err, ErrValidation)
}
