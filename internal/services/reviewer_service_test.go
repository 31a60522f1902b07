package services

import (
	"context"
	"testing"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReviewerDefaults(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewReviewerService(st)
	orgID := uuid.New()

	resp, err := svc.CreateReviewer(context.Background(), orgID, models.CreateReviewerRequest{
		UserID:      uuid.New(),
		DisplayName: "Dana",
	})
	require.NoError(t, err)

	assert.Equal(t, defaultMaxConcurrentCases, resp.MaxConcurrentCases)
	assert.True(t, resp.IsAvailable)
}

func TestCreateReviewerValidation(t *testing.T) {
	svc := NewReviewerService(memory.NewMemoryStore())
	orgID := uuid.New()

	_, err := svc.CreateReviewer(context.Background(), orgID, models.CreateReviewerRequest{UserID: uuid.New(), DisplayName: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateReviewer(context.Background(), orgID, models.CreateReviewerRequest{DisplayName: "Dana"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateReviewerPartialUpdate(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewReviewerService(st)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)

	off := false
	resp, err := svc.UpdateReviewer(context.Background(), orgID, reviewer.ID, models.UpdateReviewerRequest{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, resp.IsAvailable)
	assert.Equal(t, 5, resp.MaxConcurrentCases)

	three := 3
	resp, err = svc.UpdateReviewer(context.Background(), orgID, reviewer.ID, models.UpdateReviewerRequest{MaxConcurrentCases: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.MaxConcurrentCases)
	assert.False(t, resp.IsAvailable, "availability set earlier must survive a capacity-only update")

	zero := 0
	_, err = svc.UpdateReviewer(context.Background(), orgID, reviewer.ID, models.UpdateReviewerRequest{MaxConcurrentCases: &zero})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateReviewerTenantScoping(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewReviewerService(st)
	orgA, orgB := uuid.New(), uuid.New()
	reviewer := seedReviewer(t, st, orgA, 5)

	on := true
	_, err := svc.UpdateReviewer(context.Background(), orgB, reviewer.ID, models.UpdateReviewerRequest{IsAvailable: &on})
	assert.ErrorIs(t, err, ErrTenantMismatch)

	_, err = svc.UpdateReviewer(context.Background(), orgA, uuid.New(), models.UpdateReviewerRequest{IsAvailable: &on})
	assert.ErrorIs(t, err, ErrReviewerNotFound)
}

func TestListReviewersScopedToOrg(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewReviewerService(st)
	orgA, orgB := uuid.New(), uuid.New()
	mine := seedReviewer(t, st, orgA, 5)
	seedReviewer(t, st, orgB, 5)

	reviewers, err := svc.ListReviewers(context.Background(), orgA)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, mine.ID, reviewers[0].ID)
}
