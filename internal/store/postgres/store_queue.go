package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Escalation queue persistence. The pending -> assigned claim and the
// assigned -> terminal resolution are both single conditional UPDATEs, so under
// concurrent callers the database decides exactly one winner; losers get a
// zero-row result which this layer maps to the precise conflict error.

const itemColumns = `id, organization_id, persona_id, user_id, message_id, assessment_id, user_message, candidate_reply, priority, status, response_time_limit, assigned_reviewer, assigned_at, created_at, updated_at`

func (s *PostgresStore) scanItem(row pgx.Row) (*models.EscalationItem, error) {
	it := &models.EscalationItem{}
	var sealedMessage, sealedReply string
	err := row.Scan(
		&it.ID,
		&it.OrganizationID,
		&it.PersonaID,
		&it.UserID,
		&it.MessageID,
		&it.AssessmentID,
		&sealedMessage,
		&sealedReply,
		&it.Priority,
		&it.Status,
		&it.ResponseTimeLimit,
		&it.AssignedReviewer,
		&it.AssignedAt,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if it.UserMessage, err = s.open(sealedMessage); err != nil {
		return nil, fmt.Errorf("failed to decrypt user message for item %s: %w", it.ID, err)
	}
	if it.CandidateReply, err = s.open(sealedReply); err != nil {
		return nil, fmt.Errorf("failed to decrypt candidate reply for item %s: %w", it.ID, err)
	}
	return it, nil
}

func (s *PostgresStore) CreateEscalationItem(ctx context.Context, item *models.EscalationItem) error {
	sealedMessage, err := s.seal(item.UserMessage)
	if err != nil {
		return fmt.Errorf("failed to encrypt user message: %w", err)
	}
	sealedReply, err := s.seal(item.CandidateReply)
	if err != nil {
		return fmt.Errorf("failed to encrypt candidate reply: %w", err)
	}

	query := `
		INSERT INTO escalation_items
			(id, organization_id, persona_id, user_id, message_id, assessment_id, user_message, candidate_reply, priority, status, response_time_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.db.Exec(ctx, query,
		item.ID,
		item.OrganizationID,
		item.PersonaID,
		item.UserID,
		item.MessageID,
		item.AssessmentID,
		sealedMessage,
		sealedReply,
		item.Priority,
		item.Status,
		item.ResponseTimeLimit,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateEscalationItem: Insert failed for item %s: %v", item.ID, err)
		return fmt.Errorf("database error creating escalation item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEscalationItemByID(ctx context.Context, id, orgID uuid.UUID) (*models.EscalationItem, error) {
	query := `SELECT ` + itemColumns + ` FROM escalation_items WHERE id = $1`

	it, err := s.scanItem(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetEscalationItemByID: Query failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching escalation item: %w", err)
	}
	if it.OrganizationID != orgID {
		log.Printf("ERROR [PostgresStore] GetEscalationItemByID: Tenant mismatch for item %s (have org %s, want %s)", id, it.OrganizationID, orgID)
		return nil, store.ErrTenantMismatch
	}
	return it, nil
}

// ListOpenEscalationItems returns the org's pending items, urgent band first,
// earliest deadline first within each band (EDF within priority class).
func (s *PostgresStore) ListOpenEscalationItems(ctx context.Context, orgID uuid.UUID) ([]models.EscalationItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM escalation_items
		WHERE organization_id = $1 AND status = 'pending'
		ORDER BY CASE priority WHEN 'urgent' THEN 0 ELSE 1 END, response_time_limit ASC`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListOpenEscalationItems: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing open items: %w", err)
	}
	defer rows.Close()

	var out []models.EscalationItem
	for rows.Next() {
		it, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning escalation item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClaimEscalationItem(ctx context.Context, arg store.ClaimEscalationParams) (*models.EscalationItem, error) {
	// The capacity subquery runs inside the same UPDATE, so the check and the
	// claim are one atomic statement; concurrent claims cannot over-assign.
	query := `
		UPDATE escalation_items
		SET status = 'assigned', assigned_reviewer = $3, assigned_at = $4, updated_at = $4
		WHERE id = $1 AND organization_id = $2
		  AND status = 'pending' AND assigned_reviewer IS NULL
		  AND (SELECT COUNT(*) FROM escalation_items WHERE assigned_reviewer = $3 AND status = 'assigned') < $5
		RETURNING ` + itemColumns

	it, err := s.scanItem(s.db.QueryRow(ctx, query, arg.ItemID, arg.OrganizationID, arg.ReviewerID, arg.Now, arg.MaxConcurrentCases))
	if err == nil {
		return it, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR [PostgresStore] ClaimEscalationItem: Update failed for item %s: %v", arg.ItemID, err)
		return nil, fmt.Errorf("database error claiming escalation item: %w", err)
	}

	// Zero rows: re-read to report the precise reason the claim lost.
	current, getErr := s.GetEscalationItemByID(ctx, arg.ItemID, arg.OrganizationID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status != models.StatusPending || current.AssignedReviewer != nil {
		return nil, store.ErrAlreadyAssigned
	}
	return nil, store.ErrAtCapacity
}

func (s *PostgresStore) ResolveEscalationItem(ctx context.Context, arg store.ResolveEscalationParams) (*models.EscalationItem, error) {
	query := `
		UPDATE escalation_items
		SET status = $4, updated_at = $5
		WHERE id = $1 AND organization_id = $2
		  AND status = 'assigned' AND assigned_reviewer = $3
		RETURNING ` + itemColumns

	it, err := s.scanItem(s.db.QueryRow(ctx, query, arg.ItemID, arg.OrganizationID, arg.ReviewerID, arg.NewStatus, arg.Now))
	if err == nil {
		return it, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR [PostgresStore] ResolveEscalationItem: Update failed for item %s: %v", arg.ItemID, err)
		return nil, fmt.Errorf("database error resolving escalation item: %w", err)
	}

	current, getErr := s.GetEscalationItemByID(ctx, arg.ItemID, arg.OrganizationID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status.IsTerminal() {
		return nil, store.ErrAlreadyTerminal
	}
	return nil, store.ErrNotAssignee
}

// ExpireEscalationItems transitions every non-terminal item past its deadline
// to expired. The WHERE clause excludes terminal states, so a racing resolution
// or a racing sweep simply shrinks this call's result set.
func (s *PostgresStore) ExpireEscalationItems(ctx context.Context, now time.Time) ([]models.EscalationItem, error) {
	query := `
		UPDATE escalation_items
		SET status = 'expired', updated_at = $1
		WHERE status IN ('pending', 'assigned') AND response_time_limit <= $1
		RETURNING ` + itemColumns

	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ExpireEscalationItems: Update failed: %v", err)
		return nil, fmt.Errorf("database error expiring escalation items: %w", err)
	}
	defer rows.Close()

	var out []models.EscalationItem
	for rows.Next() {
		it, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning expired item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAssignedItems(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM escalation_items WHERE assigned_reviewer = $1 AND status = 'assigned'`

	var count int
	if err := s.db.QueryRow(ctx, query, reviewerID).Scan(&count); err != nil {
		log.Printf("ERROR [PostgresStore] CountAssignedItems: Query failed for reviewer %s: %v", reviewerID, err)
		return 0, fmt.Errorf("database error counting assigned items: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListEscalationItemsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.EscalationItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM escalation_items
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID, from, to)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListEscalationItemsByOrgAndRange: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing escalation items: %w", err)
	}
	defer rows.Close()

	var out []models.EscalationItem
	for rows.Next() {
		it, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning escalation item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// --- Disposition records ---

const dispositionColumns = `id, organization_id, item_id, reviewer_id, action, delivered_content, review_duration_ms, created_at`

func (s *PostgresStore) scanDisposition(row pgx.Row) (*models.DispositionRecord, error) {
	r := &models.DispositionRecord{}
	var sealedContent *string
	var durationMs int64
	err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.ItemID,
		&r.ReviewerID,
		&r.Action,
		&sealedContent,
		&durationMs,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ReviewDuration = time.Duration(durationMs) * time.Millisecond
	if sealedContent != nil {
		content, err := s.open(*sealedContent)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt delivered content for item %s: %w", r.ItemID, err)
		}
		r.DeliveredContent = &content
	}
	return r, nil
}

func (s *PostgresStore) CreateDispositionRecord(ctx context.Context, record *models.DispositionRecord) error {
	var sealedContent *string
	if record.DeliveredContent != nil {
		sealed, err := s.seal(*record.DeliveredContent)
		if err != nil {
			return fmt.Errorf("failed to encrypt delivered content: %w", err)
		}
		sealedContent = &sealed
	}

	query := `
		INSERT INTO disposition_records (id, organization_id, item_id, reviewer_id, action, delivered_content, review_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(ctx, query,
		record.ID,
		record.OrganizationID,
		record.ItemID,
		record.ReviewerID,
		record.Action,
		sealedContent,
		record.ReviewDuration.Milliseconds(),
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateDispositionRecord: Insert failed for item %s: %v", record.ItemID, err)
		return fmt.Errorf("database error creating disposition record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDispositionByItemID(ctx context.Context, itemID, orgID uuid.UUID) (*models.DispositionRecord, error) {
	query := `SELECT ` + dispositionColumns + ` FROM disposition_records WHERE item_id = $1`

	r, err := s.scanDisposition(s.db.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetDispositionByItemID: Query failed for item %s: %v", itemID, err)
		return nil, fmt.Errorf("database error fetching disposition: %w", err)
	}
	if r.OrganizationID != orgID {
		return nil, store.ErrTenantMismatch
	}
	return r, nil
}

func (s *PostgresStore) ListDispositionsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.DispositionRecord, error) {
	query := `
		SELECT ` + dispositionColumns + `
		FROM disposition_records
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID, from, to)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListDispositionsByOrgAndRange: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing dispositions: %w", err)
	}
	defer rows.Close()

	var out []models.DispositionRecord
	for rows.Next() {
		r, err := s.scanDisposition(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning disposition: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
