package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"
	"soulcare-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueueService(st *memory.MemoryStore, notifier Notifier) *QueueService {
	return NewQueueService(st, testConfig(), notifier)
}

func assessmentForLevel(orgID uuid.UUID, level models.RiskLevel) *models.RiskAssessment {
	return &models.RiskAssessment{
		ID:                  uuid.New(),
		OrganizationID:      orgID,
		MessageID:           uuid.New(),
		Level:               level,
		Categories:          []models.RiskCategory{models.RiskCategoryCrisis},
		Confidence:          0.9,
		RequiresHumanReview: level.AtLeast(models.RiskLevelHigh),
		AutoResponseBlocked: level == models.RiskLevelCritical,
		CreatedAt:           time.Now(),
	}
}

func TestEnqueuePriorityAndDeadline(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()

	t.Run("critical maps to urgent with the short window", func(t *testing.T) {
		before := time.Now()
		item, err := svc.Enqueue(context.Background(), assessmentForLevel(orgID, models.RiskLevelCritical), uuid.New(), uuid.New(), "msg", "reply")
		require.NoError(t, err)
		assert.Equal(t, models.PriorityUrgent, item.Priority)
		assert.Equal(t, models.StatusPending, item.Status)
		window := item.ResponseTimeLimit.Sub(before)
		assert.InDelta(t, (15 * time.Minute).Seconds(), window.Seconds(), 5)
	})

	t.Run("high maps to high with the long window", func(t *testing.T) {
		before := time.Now()
		item, err := svc.Enqueue(context.Background(), assessmentForLevel(orgID, models.RiskLevelHigh), uuid.New(), uuid.New(), "msg", "reply")
		require.NoError(t, err)
		assert.Equal(t, models.PriorityHigh, item.Priority)
		window := item.ResponseTimeLimit.Sub(before)
		assert.InDelta(t, (60 * time.Minute).Seconds(), window.Seconds(), 5)
	})

	t.Run("non-reviewable assessments are rejected", func(t *testing.T) {
		_, err := svc.Enqueue(context.Background(), assessmentForLevel(orgID, models.RiskLevelMedium), uuid.New(), uuid.New(), "msg", "reply")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListQueueOrdering(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)

	now := time.Now()
	highEarly := seedQueueItem(t, st, orgID, models.PriorityHigh, now.Add(10*time.Minute))
	urgentLate := seedQueueItem(t, st, orgID, models.PriorityUrgent, now.Add(14*time.Minute))
	urgentEarly := seedQueueItem(t, st, orgID, models.PriorityUrgent, now.Add(5*time.Minute))
	highLate := seedQueueItem(t, st, orgID, models.PriorityHigh, now.Add(50*time.Minute))

	items, err := svc.ListQueue(context.Background(), orgID, reviewer.ID)
	require.NoError(t, err)
	require.Len(t, items, 4)

	// Urgent band drains first; earliest deadline first within each band.
	assert.Equal(t, urgentEarly.ID, items[0].ID)
	assert.Equal(t, urgentLate.ID, items[1].ID)
	assert.Equal(t, highEarly.ID, items[2].ID)
	assert.Equal(t, highLate.ID, items[3].ID)
}

func TestListQueueRejectsForeignReviewer(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgA, orgB := uuid.New(), uuid.New()
	foreign := seedReviewer(t, st, orgB, 5)
	seedQueueItem(t, st, orgA, models.PriorityUrgent, time.Now().Add(10*time.Minute))

	_, err := svc.ListQueue(context.Background(), orgA, foreign.ID)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestClaimAssignsExclusively(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(10*time.Minute))

	claimed, err := svc.Claim(context.Background(), orgID, item.ID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, claimed.Status)
	require.NotNil(t, claimed.AssignedReviewer)
	assert.Equal(t, reviewer.ID, *claimed.AssignedReviewer)
	assert.NotNil(t, claimed.AssignedAt)

	// A second claim, even by the same reviewer, loses.
	_, err = svc.Claim(context.Background(), orgID, item.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrClaimConflict)
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	item := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(10*time.Minute))

	const contenders = 16
	reviewers := make([]uuid.UUID, contenders)
	for i := range reviewers {
		reviewers[i] = seedReviewer(t, st, orgID, 5).ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	conflicts := 0
	for _, rid := range reviewers {
		wg.Add(1)
		go func(rid uuid.UUID) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), orgID, item.ID, rid)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				conflicts++
			}
		}(rid)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, conflicts)
}

func TestClaimEnforcesReviewerCapacity(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 1)
	first := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(10*time.Minute))
	second := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(12*time.Minute))

	_, err := svc.Claim(context.Background(), orgID, first.ID, reviewer.ID)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), orgID, second.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrReviewerUnavailable)
}

func TestClaimRejectsUnavailableReviewer(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(10*time.Minute))

	off := false
	_, err := st.UpdateReviewer(context.Background(), store.UpdateReviewerParams{
		ID:             reviewer.ID,
		OrganizationID: orgID,
		IsAvailable:    &off,
	})
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), orgID, item.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrReviewerUnavailable)
}

func TestSweepExpiresBreachedItemsExactlyOnce(t *testing.T) {
	st := memory.NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := newQueueService(st, notifier)
	orgID := uuid.New()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	breached := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		breached = append(breached, seedQueueItem(t, st, orgID, models.PriorityUrgent, past).ID)
	}
	alive := seedQueueItem(t, st, orgID, models.PriorityHigh, future)

	// Racing sweeps: each breached item must be expired by exactly one of them.
	const sweeps = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.SweepOnce(context.Background())
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, err)
			total += n
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, total)
	assert.Equal(t, 5, notifier.expiredCount())

	for _, id := range breached {
		item, err := st.GetEscalationItemByID(context.Background(), id, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, item.Status)
	}
	untouched, err := st.GetEscalationItemByID(context.Background(), alive.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, untouched.Status)
}

func TestSweepExpiresAssignedItemsToo(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newQueueService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(50*time.Millisecond))

	_, err := svc.Claim(context.Background(), orgID, item.ID, reviewer.ID)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	n, err := svc.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}
