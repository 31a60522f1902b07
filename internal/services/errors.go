package services

import "errors"

// Error taxonomy of the escalation pipeline. Handlers map these onto HTTP
// statuses; nothing else inspects error strings.
var (
	// ErrGenerationFailure means the reply generator failed or timed out. The
	// turn is aborted; a missing reply is never auto-delivered.
	ErrGenerationFailure = errors.New("reply generation failed")

	// ErrClaimConflict means another reviewer won the claim race (or the item
	// already left pending). Expected under concurrency; callers retry against
	// the next queue item.
	ErrClaimConflict = errors.New("escalation item already claimed")

	// ErrReviewerUnavailable means the reviewer is marked unavailable or is at
	// their maximum concurrent cases.
	ErrReviewerUnavailable = errors.New("reviewer unavailable or at capacity")

	// ErrOwnershipViolation means the resolving reviewer is not the item's
	// assigned reviewer. Caller error, not retried.
	ErrOwnershipViolation = errors.New("reviewer does not own this escalation item")

	// ErrAlreadyResolved means the item already reached a terminal state.
	// Resolution is at-most-once per item.
	ErrAlreadyResolved = errors.New("escalation item already resolved")

	// ErrTenantMismatch means an entity exists but under a different
	// organization than the caller claimed. This indicates a caller bug and is
	// rejected loudly rather than filtered.
	ErrTenantMismatch = errors.New("entity belongs to a different organization")

	// ErrValidation is the generic input validation failure.
	ErrValidation = errors.New("input validation failed")
)
