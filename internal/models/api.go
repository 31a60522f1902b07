package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Auth DTOs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           UserRole  `json:"role"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Conversation DTOs ---

// SubmitMessageRequest defines the body for submitting a user message to a persona.
type SubmitMessageRequest struct {
	Content string `json:"content"`
}

// SubmitMessageResponse is the outcome of one pipeline turn: either a delivered
// reply, or the id of the escalation item now awaiting counselor disposition.
// Exactly one of DeliveredReply and QueuedItemID is set.
type SubmitMessageResponse struct {
	MessageID      uuid.UUID  `json:"message_id"`
	DeliveredReply *string    `json:"delivered_reply,omitempty"`
	QueuedItemID   *uuid.UUID `json:"queued_item_id,omitempty"`
	RiskLevel      RiskLevel  `json:"risk_level"`
}

// --- Persona DTOs ---

// CreatePersonaRequest defines the body for creating a persona.
type CreatePersonaRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
}

// PersonaResponse defines the data returned for a persona.
type PersonaResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	TrainerID      uuid.UUID `json:"trainer_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	SystemPrompt   *string   `json:"system_prompt,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IngestDocumentRequest carries pre-extracted document text for persona training.
// Text extraction from uploaded files happens upstream; this endpoint only
// receives plain text.
type IngestDocumentRequest struct {
	Text string `json:"text"`
}

// IngestDocumentResponse reports the chunks created from one ingestion.
type IngestDocumentResponse struct {
	SourceID   uuid.UUID   `json:"source_id"`
	ChunkIDs   []uuid.UUID `json:"chunk_ids"`
	ChunkCount int         `json:"chunk_count"`
}

// --- Reviewer DTOs ---

// CreateReviewerRequest defines the body for registering a counselor as a reviewer.
type CreateReviewerRequest struct {
	UserID             uuid.UUID `json:"user_id"`
	DisplayName        string    `json:"display_name"`
	MaxConcurrentCases int       `json:"max_concurrent_cases"`
	Specializations    *string   `json:"specializations,omitempty"`
}

// UpdateReviewerRequest defines the body for updating reviewer availability/capacity.
type UpdateReviewerRequest struct {
	IsAvailable        *bool `json:"is_available,omitempty"`
	MaxConcurrentCases *int  `json:"max_concurrent_cases,omitempty"`
}

// ReviewerResponse defines the data returned for a reviewer.
type ReviewerResponse struct {
	ID                 uuid.UUID `json:"id"`
	OrganizationID     uuid.UUID `json:"organization_id"`
	UserID             uuid.UUID `json:"user_id"`
	DisplayName        string    `json:"display_name"`
	MaxConcurrentCases int       `json:"max_concurrent_cases"`
	IsAvailable        bool      `json:"is_available"`
	Specializations    *string   `json:"specializations,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// --- Queue DTOs ---

// EscalationItemResponse defines the data returned for a queued item.
type EscalationItemResponse struct {
	ID                uuid.UUID        `json:"id"`
	OrganizationID    uuid.UUID        `json:"organization_id"`
	PersonaID         uuid.UUID        `json:"persona_id"`
	UserID            uuid.UUID        `json:"user_id"`
	UserMessage       string           `json:"user_message"`
	CandidateReply    string           `json:"candidate_reply"`
	Priority          Priority         `json:"priority"`
	Status            EscalationStatus `json:"status"`
	ResponseTimeLimit time.Time        `json:"response_time_limit"`
	AssignedReviewer  *uuid.UUID       `json:"assigned_reviewer,omitempty"`
	AssignedAt        *time.Time       `json:"assigned_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ClaimRequest identifies the reviewer attempting to claim an item.
type ClaimRequest struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
}

// ResolveRequest defines the body for resolving a claimed escalation item.
type ResolveRequest struct {
	ReviewerID    uuid.UUID         `json:"reviewer_id"`
	Action        DispositionAction `json:"action"`
	EditedContent *string           `json:"edited_content,omitempty"` // Required for modify
}

// DispositionResponse defines the data returned for a disposition record.
type DispositionResponse struct {
	ID               uuid.UUID         `json:"id"`
	ItemID           uuid.UUID         `json:"item_id"`
	ReviewerID       uuid.UUID         `json:"reviewer_id"`
	Action           DispositionAction `json:"action"`
	DeliveredContent *string           `json:"delivered_content,omitempty"`
	ReviewSeconds    float64           `json:"review_seconds"`
	CreatedAt        time.Time         `json:"created_at"`
}

// --- Analytics DTOs ---

// DailyUsageMetrics is one day's usage rollup for an organization.
type DailyUsageMetrics struct {
	Date             string `json:"date"` // YYYY-MM-DD
	ConversationDays int    `json:"conversation_days"`
	UserMessageCount int    `json:"user_message_count"`
	AIMessageCount   int    `json:"ai_message_count"`
	EscalationCount  int    `json:"escalation_count"`
}

// ReviewerPerformance aggregates one reviewer's disposition history over a range.
type ReviewerPerformance struct {
	ReviewerID       uuid.UUID `json:"reviewer_id"`
	CasesResolved    int       `json:"cases_resolved"`
	AvgReviewSeconds float64   `json:"avg_review_seconds"`
	ApprovedCount    int       `json:"approved_count"`
	ModifiedCount    int       `json:"modified_count"`
	RejectedCount    int       `json:"rejected_count"`
	EscalatedCount   int       `json:"escalated_count"`
}

// AnalyticsRollup is the full derived rollup for an organization and date range.
// Purely derived data; always reproducible from the underlying records.
type AnalyticsRollup struct {
	OrganizationID   uuid.UUID             `json:"organization_id"`
	From             time.Time             `json:"from"`
	To               time.Time             `json:"to"`
	DailyUsage       []DailyUsageMetrics   `json:"daily_usage"`
	ReviewerStats    []ReviewerPerformance `json:"reviewer_stats"`
	CategoryTriggers map[RiskCategory]int  `json:"category_triggers"`
	ExpiredItemCount int                   `json:"expired_item_count"`
	GeneratedAt      time.Time             `json:"generated_at"`
}
