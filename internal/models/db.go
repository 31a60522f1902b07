package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	Role           UserRole  `db:"role"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Organization is the tenant boundary. Every other entity transitively carries
// its organization_id; cross-tenant reads are rejected at the store layer.
type Organization struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	MaxUsers    int       `db:"max_users"`
	MaxPersonas int       `db:"max_personas"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Reviewer is a counselor who works the escalation queue for one organization.
type Reviewer struct {
	ID                 uuid.UUID `db:"id"`
	OrganizationID     uuid.UUID `db:"organization_id"`
	UserID             uuid.UUID `db:"user_id"`
	DisplayName        string    `db:"display_name"`
	MaxConcurrentCases int       `db:"max_concurrent_cases"`
	IsAvailable        bool      `db:"is_available"`
	Specializations    *string   `db:"specializations"` // Nullable free text, e.g. "crisis intervention"
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Persona is a configured AI character owned by one organization and one trainer.
type Persona struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	TrainerID      uuid.UUID `db:"trainer_id"`
	Name           string    `db:"name"`
	Description    *string   `db:"description"`
	SystemPrompt   *string   `db:"system_prompt"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ContextChunk is a unit of ingested text bound to exactly one persona, with its
// embedding vector and source provenance. Immutable once created; deleted only
// with its owning persona or source document.
type ContextChunk struct {
	ID             uuid.UUID  `db:"id"`
	OrganizationID uuid.UUID  `db:"organization_id"`
	PersonaID      uuid.UUID  `db:"persona_id"`
	Content        string     `db:"content"`
	Embedding      []float32  `db:"embedding"`
	SourceType     SourceType `db:"source_type"`
	SourceID       uuid.UUID  `db:"source_id"`
	ChunkIndex     int        `db:"chunk_index"` // Position within the source text
	CreatedAt      time.Time  `db:"created_at"`
}

// ConversationMessage is one turn in a conversation. Append-only.
type ConversationMessage struct {
	ID             uuid.UUID   `db:"id"`
	OrganizationID uuid.UUID   `db:"organization_id"`
	PersonaID      uuid.UUID   `db:"persona_id"`
	UserID         uuid.UUID   `db:"user_id"`
	Role           MessageRole `db:"role"`
	Content        string      `db:"content"`
	CreatedAt      time.Time   `db:"created_at"`
}

// RiskAssessment is produced for exactly one ConversationMessage (1:1).
// Immutable once written. RequiresHumanReview and AutoResponseBlocked are
// derived from Level at creation time and persisted for the audit trail.
type RiskAssessment struct {
	ID                  uuid.UUID      `db:"id"`
	OrganizationID      uuid.UUID      `db:"organization_id"`
	MessageID           uuid.UUID      `db:"message_id"`
	Level               RiskLevel      `db:"risk_level"`
	Categories          []RiskCategory `db:"risk_categories"`
	Confidence          float64        `db:"confidence_score"` // Advisory, in [0,1]
	Reasoning           string         `db:"reasoning"`
	RequiresHumanReview bool           `db:"requires_human_review"`
	AutoResponseBlocked bool           `db:"auto_response_blocked"`
	CreatedAt           time.Time      `db:"created_at"`
}

// EscalationItem is a candidate reply held for human disposition. Never deleted;
// it only transitions through the queue state machine to a terminal status.
type EscalationItem struct {
	ID                uuid.UUID        `db:"id"`
	OrganizationID    uuid.UUID        `db:"organization_id"`
	PersonaID         uuid.UUID        `db:"persona_id"`
	UserID            uuid.UUID        `db:"user_id"`
	MessageID         uuid.UUID        `db:"message_id"`
	AssessmentID      uuid.UUID        `db:"assessment_id"`
	UserMessage       string           `db:"user_message"`
	CandidateReply    string           `db:"candidate_reply"`
	Priority          Priority         `db:"priority"`
	Status            EscalationStatus `db:"status"`
	ResponseTimeLimit time.Time        `db:"response_time_limit"` // Absolute deadline (SLA)
	AssignedReviewer  *uuid.UUID       `db:"assigned_reviewer"`
	AssignedAt        *time.Time       `db:"assigned_at"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// DispositionRecord is the immutable audit record of a reviewer's decision,
// 1:1 with the EscalationItem it resolves.
type DispositionRecord struct {
	ID               uuid.UUID         `db:"id"`
	OrganizationID   uuid.UUID         `db:"organization_id"`
	ItemID           uuid.UUID         `db:"item_id"`
	ReviewerID       uuid.UUID         `db:"reviewer_id"`
	Action           DispositionAction `db:"action"`
	DeliveredContent *string           `db:"delivered_content"` // nil for reject/escalate
	ReviewDuration   time.Duration     `db:"review_duration"`   // assigned -> resolved
	CreatedAt        time.Time         `db:"created_at"`
}
