package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"soulcare-backend/internal/models"

	"github.com/google/uuid"
)

// Context chunk persistence. Chunk text is encrypted at rest; embeddings are
// stored as float4[] so similarity scoring stays in the service layer.

func (s *PostgresStore) CreateContextChunks(ctx context.Context, chunks []models.ContextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	// One transaction per ingestion so a failed embed/insert never leaves a
	// partial document behind.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting chunk transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO context_chunks (id, organization_id, persona_id, content, embedding, source_type, source_id, chunk_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, c := range chunks {
		sealed, err := s.seal(c.Content)
		if err != nil {
			return fmt.Errorf("failed to encrypt chunk content: %w", err)
		}
		if _, err := tx.Exec(ctx, query,
			c.ID,
			c.OrganizationID,
			c.PersonaID,
			sealed,
			c.Embedding,
			c.SourceType,
			c.SourceID,
			c.ChunkIndex,
		); err != nil {
			log.Printf("ERROR [PostgresStore] CreateContextChunks: Insert failed for chunk %s (persona %s): %v", c.ID, c.PersonaID, err)
			return fmt.Errorf("database error creating context chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing chunks: %w", err)
	}
	return nil
}

// ListChunksByPersona returns all chunks for one persona within one
// organization. Both filters are in the WHERE clause; there is no unscoped
// variant, which is what keeps retrieval isolation structural.
func (s *PostgresStore) ListChunksByPersona(ctx context.Context, orgID, personaID uuid.UUID) ([]models.ContextChunk, error) {
	query := `
		SELECT id, organization_id, persona_id, content, embedding, source_type, source_id, chunk_index, created_at
		FROM context_chunks
		WHERE organization_id = $1 AND persona_id = $2
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID, personaID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListChunksByPersona: Query failed for persona %s: %v", personaID, err)
		return nil, fmt.Errorf("database error listing chunks: %w", err)
	}
	defer rows.Close()

	var out []models.ContextChunk
	for rows.Next() {
		var c models.ContextChunk
		var sealed string
		if err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.PersonaID,
			&sealed,
			&c.Embedding,
			&c.SourceType,
			&c.SourceID,
			&c.ChunkIndex,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning chunk: %w", err)
		}
		content, err := s.open(sealed)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt chunk %s: %w", c.ID, err)
		}
		c.Content = content
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteChunksBySource removes the chunks created from one source document.
// Chunks are otherwise immutable; deletion only ever follows the source.
func (s *PostgresStore) DeleteChunksBySource(ctx context.Context, orgID, personaID, sourceID uuid.UUID) (int, error) {
	query := `
		DELETE FROM context_chunks
		WHERE organization_id = $1 AND persona_id = $2 AND source_id = $3`

	tag, err := s.db.Exec(ctx, query, orgID, personaID, sourceID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteChunksBySource: Delete failed for source %s: %v", sourceID, err)
		return 0, fmt.Errorf("database error deleting chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- Conversation messages ---

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.ConversationMessage) error {
	sealed, err := s.seal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt message content: %w", err)
	}

	query := `
		INSERT INTO conversation_messages (id, organization_id, persona_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.Exec(ctx, query,
		msg.ID,
		msg.OrganizationID,
		msg.PersonaID,
		msg.UserID,
		msg.Role,
		sealed,
		createdAt,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateMessage: Insert failed for message %s: %v", msg.ID, err)
		return fmt.Errorf("database error creating message: %w", err)
	}
	return nil
}

const messageColumns = `id, organization_id, persona_id, user_id, role, content, created_at`

func (s *PostgresStore) scanMessages(ctx context.Context, query string, args ...any) ([]models.ConversationMessage, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		var sealed string
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.PersonaID, &m.UserID, &m.Role, &sealed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		content, err := s.open(sealed)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt message %s: %w", m.ID, err)
		}
		m.Content = content
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListRecentMessages returns the last `limit` turns of one user's conversation
// with one persona, oldest first.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, orgID, personaID, userID uuid.UUID, limit int) ([]models.ConversationMessage, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM conversation_messages
			WHERE organization_id = $1 AND persona_id = $2 AND user_id = $3
			ORDER BY created_at DESC
			LIMIT $4
		) recent
		ORDER BY created_at ASC`

	return s.scanMessages(ctx, query, orgID, personaID, userID, limit)
}

func (s *PostgresStore) ListMessagesByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.ConversationMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM conversation_messages
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`

	return s.scanMessages(ctx, query, orgID, from, to)
}

// --- Risk assessments ---

func (s *PostgresStore) CreateRiskAssessment(ctx context.Context, assessment *models.RiskAssessment) error {
	categories := make([]string, len(assessment.Categories))
	for i, c := range assessment.Categories {
		categories[i] = string(c)
	}

	query := `
		INSERT INTO risk_assessments
			(id, organization_id, message_id, risk_level, risk_categories, confidence_score, reasoning, requires_human_review, auto_response_blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		assessment.ID,
		assessment.OrganizationID,
		assessment.MessageID,
		assessment.Level,
		categories,
		assessment.Confidence,
		assessment.Reasoning,
		assessment.RequiresHumanReview,
		assessment.AutoResponseBlocked,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateRiskAssessment: Insert failed for message %s: %v", assessment.MessageID, err)
		return fmt.Errorf("database error creating risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAssessmentsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.RiskAssessment, error) {
	query := `
		SELECT id, organization_id, message_id, risk_level, risk_categories, confidence_score, reasoning, requires_human_review, auto_response_blocked, created_at
		FROM risk_assessments
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID, from, to)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListAssessmentsByOrgAndRange: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing assessments: %w", err)
	}
	defer rows.Close()

	var out []models.RiskAssessment
	for rows.Next() {
		var a models.RiskAssessment
		var categories []string
		if err := rows.Scan(
			&a.ID,
			&a.OrganizationID,
			&a.MessageID,
			&a.Level,
			&categories,
			&a.Confidence,
			&a.Reasoning,
			&a.RequiresHumanReview,
			&a.AutoResponseBlocked,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning assessment: %w", err)
		}
		a.Categories = make([]models.RiskCategory, len(categories))
		for i, c := range categories {
			a.Categories[i] = models.RiskCategory(c)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
