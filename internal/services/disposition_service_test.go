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

// claimItem seeds a pending item and claims it for the reviewer.
func claimItem(t *testing.T, st *memory.MemoryStore, qs *QueueService, orgID, reviewerID uuid.UUID) *models.EscalationItem {
	t.Helper()
	item := seedQueueItem(t, st, orgID, models.PriorityUrgent, time.Now().Add(10*time.Minute))
	claimed, err := qs.Claim(context.Background(), orgID, item.ID, reviewerID)
	require.NoError(t, err)
	return claimed
}

func TestResolveApproveDeliversCandidate(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	record, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionApprove, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ActionApprove, record.Action)
	require.NotNil(t, record.DeliveredContent)
	assert.Equal(t, item.CandidateReply, *record.DeliveredContent)
	assert.GreaterOrEqual(t, record.ReviewDuration, time.Duration(0))

	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	// The delivered reply lands in the transcript.
	msgs, err := st.ListRecentMessages(context.Background(), orgID, item.PersonaID, item.UserID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleMessageAI, msgs[0].Role)
	assert.Equal(t, item.CandidateReply, msgs[0].Content)
}

func TestResolveModifyDeliversEditedContent(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	edited := "  A gentler, hand-written response.  "
	record, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionModify, &edited)
	require.NoError(t, err)

	require.NotNil(t, record.DeliveredContent)
	assert.Equal(t, "A gentler, hand-written response.", *record.DeliveredContent)

	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusModified, got.Status)
}

func TestResolveModifyRequiresContent(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	empty := "   "
	_, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionModify, &empty)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionModify, nil)
	assert.ErrorIs(t, err, ErrValidation)

	// The item survives the rejected attempts untouched.
	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
}

func TestResolveRejectSuppressesDelivery(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	record, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionReject, nil)
	require.NoError(t, err)
	assert.Nil(t, record.DeliveredContent)

	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	// Nothing was delivered, so the transcript stays empty.
	msgs, err := st.ListRecentMessages(context.Background(), orgID, item.PersonaID, item.UserID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestResolveEscalateAlertsAndSuppressesDelivery(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	notifier := &recordingNotifier{}
	svc := NewDispositionService(st, notifier)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	record, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionEscalate, nil)
	require.NoError(t, err)
	assert.Nil(t, record.DeliveredContent)

	got, err := st.GetEscalationItemByID(context.Background(), item.ID, orgID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, got.Status)

	require.Len(t, notifier.escalated, 1)
	assert.Equal(t, item.ID, notifier.escalated[0])
}

func TestResolveRejectsNonAssignee(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	owner := seedReviewer(t, st, orgID, 5)
	interloper := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, owner.ID)

	_, err := svc.Resolve(context.Background(), orgID, item.ID, interloper.ID, models.ActionApprove, nil)
	assert.ErrorIs(t, err, ErrOwnershipViolation)
}

func TestResolveIsAtMostOnce(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgID := uuid.New()
	reviewer := seedReviewer(t, st, orgID, 5)
	item := claimItem(t, st, qs, orgID, reviewer.ID)

	_, err := svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionApprove, nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), orgID, item.ID, reviewer.ID, models.ActionReject, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// The first disposition is the one on record.
	record, err := svc.GetByItemID(context.Background(), orgID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionApprove, record.Action)
}

func TestResolveRejectsUnknownAction(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewDispositionService(st, nil)

	_, err := svc.Resolve(context.Background(), uuid.New(), uuid.New(), uuid.New(), models.DispositionAction("defer"), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetByItemIDRejectsCrossTenantRead(t *testing.T) {
	st := memory.NewMemoryStore()
	qs := newQueueService(st, nil)
	svc := NewDispositionService(st, nil)
	orgA, orgB := uuid.New(), uuid.New()
	reviewer := seedReviewer(t, st, orgA, 5)
	item := claimItem(t, st, qs, orgA, reviewer.ID)

	_, err := svc.Resolve(context.Background(), orgA, item.ID, reviewer.ID, models.ActionApprove, nil)
	require.NoError(t, err)

	_, err = svc.GetByItemID(context.Background(), orgB, item.ID)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}
