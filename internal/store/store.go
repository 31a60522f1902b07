package store

import (
	"context"
	"errors"
	"time"

	"soulcare-backend/internal/models"

	"github.com/google/uuid"
)

// Sentinel errors shared by all Store implementations. The services layer wraps
// these into its own taxonomy; handlers never see them directly.
var (
	// ErrNotFound is returned when a specific record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTenantMismatch is returned when a record exists but belongs to a
	// different organization than the caller claimed. This is a caller bug and
	// must be rejected loudly, never silently filtered into a not-found.
	ErrTenantMismatch = errors.New("record belongs to a different organization")

	// ErrAlreadyAssigned is returned when a claim loses the race for a pending item.
	ErrAlreadyAssigned = errors.New("escalation item already assigned")

	// ErrAtCapacity is returned when a claim would exceed the reviewer's
	// configured maximum concurrent cases.
	ErrAtCapacity = errors.New("reviewer is at maximum concurrent cases")

	// ErrAlreadyTerminal is returned when a transition targets an item whose
	// status is already terminal. First to reach a terminal state wins.
	ErrAlreadyTerminal = errors.New("escalation item already in a terminal state")

	// ErrNotAssignee is returned when a resolution is attempted by a reviewer
	// other than the item's assigned reviewer.
	ErrNotAssignee = errors.New("reviewer is not the assignee of this item")
)

// ClaimEscalationParams carries everything the store needs to perform the
// atomic pending -> assigned transition, including the capacity ceiling that
// must be checked in the same critical section as the claim itself.
type ClaimEscalationParams struct {
	ItemID             uuid.UUID
	OrganizationID     uuid.UUID
	ReviewerID         uuid.UUID
	MaxConcurrentCases int
	Now                time.Time
}

// ResolveEscalationParams carries the guarded assigned -> terminal transition
// for a reviewer disposition. The store verifies ownership and non-terminality
// atomically with the status write.
type ResolveEscalationParams struct {
	ItemID         uuid.UUID
	OrganizationID uuid.UUID
	ReviewerID     uuid.UUID
	NewStatus      models.EscalationStatus
	Now            time.Time
}

// UpdateReviewerParams allows partial updates of reviewer availability/capacity.
type UpdateReviewerParams struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	IsAvailable        *bool
	MaxConcurrentCases *int
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
// Every method touching a tenant-scoped entity takes the organization id as a
// mandatory parameter; there is no unscoped variant to bypass.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Organization operations
	CreateOrganization(ctx context.Context, org *models.Organization) error

	// Reviewer operations
	CreateReviewer(ctx context.Context, reviewer *models.Reviewer) error
	GetReviewerByID(ctx context.Context, id, orgID uuid.UUID) (*models.Reviewer, error)
	ListReviewersByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reviewer, error)
	UpdateReviewer(ctx context.Context, arg UpdateReviewerParams) (*models.Reviewer, error)

	// Persona operations
	CreatePersona(ctx context.Context, persona *models.Persona) error
	GetPersonaByID(ctx context.Context, id, orgID uuid.UUID) (*models.Persona, error)
	ListPersonasByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Persona, error)

	// Context chunk operations. Reads are scoped to one persona within one
	// organization; no cross-persona query exists.
	CreateContextChunks(ctx context.Context, chunks []models.ContextChunk) error
	ListChunksByPersona(ctx context.Context, orgID, personaID uuid.UUID) ([]models.ContextChunk, error)
	DeleteChunksBySource(ctx context.Context, orgID, personaID, sourceID uuid.UUID) (int, error)

	// Conversation message operations (append-only)
	CreateMessage(ctx context.Context, msg *models.ConversationMessage) error
	ListRecentMessages(ctx context.Context, orgID, personaID, userID uuid.UUID, limit int) ([]models.ConversationMessage, error)
	ListMessagesByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.ConversationMessage, error)

	// Risk assessment operations (immutable once written)
	CreateRiskAssessment(ctx context.Context, assessment *models.RiskAssessment) error
	ListAssessmentsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.RiskAssessment, error)

	// Escalation queue operations
	CreateEscalationItem(ctx context.Context, item *models.EscalationItem) error
	GetEscalationItemByID(ctx context.Context, id, orgID uuid.UUID) (*models.EscalationItem, error)
	// ListOpenEscalationItems returns pending items for the org ordered urgent
	// before high, earliest deadline first within each band.
	ListOpenEscalationItems(ctx context.Context, orgID uuid.UUID) ([]models.EscalationItem, error)
	// ClaimEscalationItem atomically transitions one pending, unassigned item to
	// assigned for the reviewer, enforcing the capacity ceiling in the same
	// critical section. Exactly one of N concurrent claims succeeds.
	ClaimEscalationItem(ctx context.Context, arg ClaimEscalationParams) (*models.EscalationItem, error)
	// ResolveEscalationItem atomically transitions an assigned item to the given
	// terminal status, verifying the caller is the assignee. Loses cleanly with
	// ErrAlreadyTerminal when a racing transition got there first.
	ResolveEscalationItem(ctx context.Context, arg ResolveEscalationParams) (*models.EscalationItem, error)
	// ExpireEscalationItems transitions every non-terminal item whose deadline
	// has passed to expired and returns the items this call expired. Racing
	// sweeps each expire a disjoint set, so the transition happens exactly once.
	ExpireEscalationItems(ctx context.Context, now time.Time) ([]models.EscalationItem, error)
	CountAssignedItems(ctx context.Context, reviewerID uuid.UUID) (int, error)
	ListEscalationItemsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.EscalationItem, error)

	// Disposition record operations (immutable, 1:1 with the resolved item)
	CreateDispositionRecord(ctx context.Context, record *models.DispositionRecord) error
	GetDispositionByItemID(ctx context.Context, itemID, orgID uuid.UUID) (*models.DispositionRecord, error)
	ListDispositionsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.DispositionRecord, error)
}
