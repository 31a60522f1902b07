package models

// Closed enumerations for the escalation pipeline. Everything that the original
// data model represented as free-form strings (status, priority, role) is a
// typed constant here so illegal states cannot be constructed from handler input.

// --- Risk Level ---

// RiskLevel is the ordinal severity assigned to a message by the classifier.
type RiskLevel string

const (
	RiskLevelNone     RiskLevel = "none"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// riskSeverity maps each level to its ordinal rank (none < low < medium < high < critical).
var riskSeverity = map[RiskLevel]int{
	RiskLevelNone:     0,
	RiskLevelLow:      1,
	RiskLevelMedium:   2,
	RiskLevelHigh:     3,
	RiskLevelCritical: 4,
}

// Severity returns the ordinal rank of the level. Unknown levels rank as
// critical so a malformed classifier response never lands in the lenient branch.
func (l RiskLevel) Severity() int {
	if s, ok := riskSeverity[l]; ok {
		return s
	}
	return riskSeverity[RiskLevelCritical]
}

// AtLeast reports whether l is at or above the given level.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Severity() >= other.Severity()
}

// IsValid reports whether l is one of the five defined levels.
func (l RiskLevel) IsValid() bool {
	_, ok := riskSeverity[l]
	return ok
}

// MaxRiskLevel returns the ceiling of the given levels, or none for an empty list.
func MaxRiskLevel(levels ...RiskLevel) RiskLevel {
	max := RiskLevelNone
	for _, l := range levels {
		if l.Severity() > max.Severity() {
			max = l
		}
	}
	return max
}

// --- Risk Categories ---

// RiskCategory tags a message with a non-exclusive concern area.
type RiskCategory string

const (
	RiskCategorySelfHarm       RiskCategory = "self_harm"
	RiskCategoryCrisis         RiskCategory = "crisis"
	RiskCategorySubstanceAbuse RiskCategory = "substance_abuse"
	RiskCategoryAbuse          RiskCategory = "abuse"
	RiskCategoryEatingDisorder RiskCategory = "eating_disorder"
	RiskCategoryOther          RiskCategory = "other"
)

// IsValid reports whether c is a known category.
func (c RiskCategory) IsValid() bool {
	switch c {
	case RiskCategorySelfHarm, RiskCategoryCrisis, RiskCategorySubstanceAbuse,
		RiskCategoryAbuse, RiskCategoryEatingDisorder, RiskCategoryOther:
		return true
	}
	return false
}

// --- Escalation Priority ---

// Priority orders escalation items in the review queue. Only high and critical
// assessments enqueue, so only two bands exist.
type Priority string

const (
	PriorityUrgent Priority = "urgent" // critical risk
	PriorityHigh   Priority = "high"   // high risk
)

// Rank returns the dequeue precedence of the priority; lower sorts first.
func (p Priority) Rank() int {
	if p == PriorityUrgent {
		return 0
	}
	return 1
}

// --- Escalation Status ---

// EscalationStatus is the queue state machine position of an item:
// pending -> assigned -> {approved | modified | rejected | escalated | expired}.
// pending/assigned may also expire directly. Transitions never re-enter pending.
type EscalationStatus string

const (
	StatusPending   EscalationStatus = "pending"
	StatusAssigned  EscalationStatus = "assigned"
	StatusApproved  EscalationStatus = "approved"
	StatusModified  EscalationStatus = "modified"
	StatusRejected  EscalationStatus = "rejected"
	StatusEscalated EscalationStatus = "escalated"
	StatusExpired   EscalationStatus = "expired"
)

// IsTerminal reports whether the status is a terminal state of the queue machine.
func (s EscalationStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusModified, StatusRejected, StatusEscalated, StatusExpired:
		return true
	}
	return false
}

// --- Disposition Action ---

// DispositionAction is a reviewer's terminal decision on an escalation item.
type DispositionAction string

const (
	ActionApprove  DispositionAction = "approve"
	ActionModify   DispositionAction = "modify"
	ActionReject   DispositionAction = "reject"
	ActionEscalate DispositionAction = "escalate"
)

// IsValid reports whether a is a known disposition action.
func (a DispositionAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionModify, ActionReject, ActionEscalate:
		return true
	}
	return false
}

// TerminalStatus maps the action to the item status it produces.
func (a DispositionAction) TerminalStatus() EscalationStatus {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionModify:
		return StatusModified
	case ActionReject:
		return StatusRejected
	case ActionEscalate:
		return StatusEscalated
	}
	return StatusRejected
}

// --- Message Role ---

// MessageRole tags a conversation turn as authored by the user or the persona.
type MessageRole string

const (
	RoleMessageUser MessageRole = "user"
	RoleMessageAI   MessageRole = "ai"
)

// --- Chunk Source ---

// SourceType records where a context chunk's text came from.
type SourceType string

const (
	SourceDocument     SourceType = "document"
	SourceConversation SourceType = "conversation"
)

// --- Account Role ---

// UserRole is the account role carried in JWT claims.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleCounselor UserRole = "counselor"
	RoleAdmin     UserRole = "admin"
)
