package postgres

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"log"

	"soulcare-backend/internal/crypto"
	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// PostgresStore is the pgx-backed Store. Conversation text (messages, chunks,
// held replies, delivered content) is encrypted with the injected AEAD before
// it reaches a column and decrypted on the way out.
type PostgresStore struct {
	db   *pgxpool.Pool
	aead cipher.AEAD
}

func NewPostgresStore(db *pgxpool.Pool, aead cipher.AEAD) *PostgresStore {
	return &PostgresStore{db: db, aead: aead}
}

// seal encrypts a text column value for storage.
func (s *PostgresStore) seal(plaintext string) (string, error) {
	return crypto.EncryptString(s.aead, plaintext)
}

// open decrypts a text column value read from storage.
func (s *PostgresStore) open(stored string) (string, error) {
	return crypto.DecryptString(s.aead, stored)
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, organization_id, email, hashed_password, role, created_at, updated_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.HashedPassword,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByEmail: Failed to query/scan user for email %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, organization_id, email, hashed_password, role)
		VALUES ($1, $2, $3, $4, $5)`
	// created_at and updated_at have database defaults (NOW())

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.OrganizationID,
		user.Email,
		user.HashedPassword,
		user.Role,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateUser: Insert failed for %s: %v", user.Email, err)
		return fmt.Errorf("database error creating user: %w", err)
	}
	return nil
}

// CreateOrganization inserts a new organization record.
func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, max_users, max_personas)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.Exec(ctx, query, org.ID, org.Name, org.MaxUsers, org.MaxPersonas)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateOrganization: Insert failed for %s: %v", org.Name, err)
		return fmt.Errorf("database error creating organization: %w", err)
	}
	return nil
}

// --- Reviewers ---

func (s *PostgresStore) CreateReviewer(ctx context.Context, reviewer *models.Reviewer) error {
	query := `
		INSERT INTO reviewers (id, organization_id, user_id, display_name, max_concurrent_cases, is_available, specializations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(ctx, query,
		reviewer.ID,
		reviewer.OrganizationID,
		reviewer.UserID,
		reviewer.DisplayName,
		reviewer.MaxConcurrentCases,
		reviewer.IsAvailable,
		reviewer.Specializations,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateReviewer: Insert failed for %s: %v", reviewer.DisplayName, err)
		return fmt.Errorf("database error creating reviewer: %w", err)
	}
	return nil
}

const reviewerColumns = `id, organization_id, user_id, display_name, max_concurrent_cases, is_available, specializations, created_at, updated_at`

func scanReviewer(row pgx.Row) (*models.Reviewer, error) {
	r := &models.Reviewer{}
	err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.UserID,
		&r.DisplayName,
		&r.MaxConcurrentCases,
		&r.IsAvailable,
		&r.Specializations,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetReviewerByID fetches a reviewer by primary key and verifies tenancy.
// A record owned by another organization is a caller bug (ErrTenantMismatch),
// not a not-found.
func (s *PostgresStore) GetReviewerByID(ctx context.Context, id, orgID uuid.UUID) (*models.Reviewer, error) {
	query := `SELECT ` + reviewerColumns + ` FROM reviewers WHERE id = $1`

	r, err := scanReviewer(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetReviewerByID: Query failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching reviewer: %w", err)
	}
	if r.OrganizationID != orgID {
		log.Printf("ERROR [PostgresStore] GetReviewerByID: Tenant mismatch for reviewer %s (have org %s, want %s)", id, r.OrganizationID, orgID)
		return nil, store.ErrTenantMismatch
	}
	return r, nil
}

func (s *PostgresStore) ListReviewersByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reviewer, error) {
	query := `SELECT ` + reviewerColumns + ` FROM reviewers WHERE organization_id = $1 ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListReviewersByOrg: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing reviewers: %w", err)
	}
	defer rows.Close()

	var out []models.Reviewer
	for rows.Next() {
		r, err := scanReviewer(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning reviewer: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateReviewer(ctx context.Context, arg store.UpdateReviewerParams) (*models.Reviewer, error) {
	// Verify existence and tenancy first so a mismatch is rejected, not filtered.
	if _, err := s.GetReviewerByID(ctx, arg.ID, arg.OrganizationID); err != nil {
		return nil, err
	}

	query := `
		UPDATE reviewers
		SET is_available = COALESCE($3, is_available),
		    max_concurrent_cases = COALESCE($4, max_concurrent_cases),
		    updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + reviewerColumns

	r, err := scanReviewer(s.db.QueryRow(ctx, query, arg.ID, arg.OrganizationID, arg.IsAvailable, arg.MaxConcurrentCases))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] UpdateReviewer: Update failed for ID %s: %v", arg.ID, err)
		return nil, fmt.Errorf("database error updating reviewer: %w", err)
	}
	return r, nil
}

// --- Personas ---

func (s *PostgresStore) CreatePersona(ctx context.Context, persona *models.Persona) error {
	query := `
		INSERT INTO personas (id, organization_id, trainer_id, name, description, system_prompt, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(ctx, query,
		persona.ID,
		persona.OrganizationID,
		persona.TrainerID,
		persona.Name,
		persona.Description,
		persona.SystemPrompt,
		persona.IsActive,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreatePersona: Insert failed for %s: %v", persona.Name, err)
		return fmt.Errorf("database error creating persona: %w", err)
	}
	return nil
}

const personaColumns = `id, organization_id, trainer_id, name, description, system_prompt, is_active, created_at, updated_at`

func scanPersona(row pgx.Row) (*models.Persona, error) {
	p := &models.Persona{}
	err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.TrainerID,
		&p.Name,
		&p.Description,
		&p.SystemPrompt,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) GetPersonaByID(ctx context.Context, id, orgID uuid.UUID) (*models.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas WHERE id = $1`

	p, err := scanPersona(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetPersonaByID: Query failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching persona: %w", err)
	}
	if p.OrganizationID != orgID {
		log.Printf("ERROR [PostgresStore] GetPersonaByID: Tenant mismatch for persona %s (have org %s, want %s)", id, p.OrganizationID, orgID)
		return nil, store.ErrTenantMismatch
	}
	return p, nil
}

func (s *PostgresStore) ListPersonasByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas WHERE organization_id = $1 ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListPersonasByOrg: Query failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing personas: %w", err)
	}
	defer rows.Close()

	var out []models.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning persona: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
