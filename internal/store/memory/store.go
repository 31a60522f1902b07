package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation. It backs the test suite and
// the "memory" dev backend. A single mutex guards all maps; the claim, resolve
// and expire operations run entirely inside the critical section, which gives
// them the same exactly-once semantics the Postgres implementation gets from
// conditional UPDATEs.
type MemoryStore struct {
	mu sync.Mutex

	users        map[uuid.UUID]*models.User
	usersByEmail map[string]uuid.UUID
	orgs         map[uuid.UUID]*models.Organization
	reviewers    map[uuid.UUID]*models.Reviewer
	personas     map[uuid.UUID]*models.Persona
	chunks       map[uuid.UUID]*models.ContextChunk
	messages     map[uuid.UUID]*models.ConversationMessage
	assessments  map[uuid.UUID]*models.RiskAssessment
	items        map[uuid.UUID]*models.EscalationItem
	dispositions map[uuid.UUID]*models.DispositionRecord // keyed by item id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uuid.UUID]*models.User),
		usersByEmail: make(map[string]uuid.UUID),
		orgs:         make(map[uuid.UUID]*models.Organization),
		reviewers:    make(map[uuid.UUID]*models.Reviewer),
		personas:     make(map[uuid.UUID]*models.Persona),
		chunks:       make(map[uuid.UUID]*models.ContextChunk),
		messages:     make(map[uuid.UUID]*models.ConversationMessage),
		assessments:  make(map[uuid.UUID]*models.RiskAssessment),
		items:        make(map[uuid.UUID]*models.EscalationItem),
		dispositions: make(map[uuid.UUID]*models.DispositionRecord),
	}
}

// --- Users / Organizations ---

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
		u.UpdatedAt = now
	}
	s.users[u.ID] = &u
	s.usersByEmail[strings.ToLower(u.Email)] = u.ID
	return nil
}

func (s *MemoryStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	o := *org
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
		o.UpdatedAt = now
	}
	s.orgs[o.ID] = &o
	return nil
}

// --- Reviewers ---

func (s *MemoryStore) CreateReviewer(ctx context.Context, reviewer *models.Reviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	r := *reviewer
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
		r.UpdatedAt = now
	}
	s.reviewers[r.ID] = &r
	return nil
}

func (s *MemoryStore) GetReviewerByID(ctx context.Context, id, orgID uuid.UUID) (*models.Reviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getReviewerLocked(id, orgID)
}

func (s *MemoryStore) getReviewerLocked(id, orgID uuid.UUID) (*models.Reviewer, error) {
	r, ok := s.reviewers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.OrganizationID != orgID {
		return nil, store.ErrTenantMismatch
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListReviewersByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Reviewer
	for _, r := range s.reviewers {
		if r.OrganizationID == orgID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateReviewer(ctx context.Context, arg store.UpdateReviewerParams) (*models.Reviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviewers[arg.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.OrganizationID != arg.OrganizationID {
		return nil, store.ErrTenantMismatch
	}
	if arg.IsAvailable != nil {
		r.IsAvailable = *arg.IsAvailable
	}
	if arg.MaxConcurrentCases != nil {
		r.MaxConcurrentCases = *arg.MaxConcurrentCases
	}
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

// --- Personas ---

func (s *MemoryStore) CreatePersona(ctx context.Context, persona *models.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := *persona
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
		p.UpdatedAt = now
	}
	s.personas[p.ID] = &p
	return nil
}

func (s *MemoryStore) GetPersonaByID(ctx context.Context, id, orgID uuid.UUID) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.personas[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.OrganizationID != orgID {
		return nil, store.ErrTenantMismatch
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPersonasByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Persona
	for _, p := range s.personas {
		if p.OrganizationID == orgID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Context chunks ---

func (s *MemoryStore) CreateContextChunks(ctx context.Context, chunks []models.ContextChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, c := range chunks {
		cp := c
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		s.chunks[cp.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) ListChunksByPersona(ctx context.Context, orgID, personaID uuid.UUID) ([]models.ContextChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ContextChunk
	for _, c := range s.chunks {
		if c.OrganizationID == orgID && c.PersonaID == personaID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteChunksBySource(ctx context.Context, orgID, personaID, sourceID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, c := range s.chunks {
		if c.OrganizationID == orgID && c.PersonaID == personaID && c.SourceID == sourceID {
			delete(s.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- Conversation messages ---

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages[m.ID] = &m
	return nil
}

func (s *MemoryStore) ListRecentMessages(ctx context.Context, orgID, personaID, userID uuid.UUID, limit int) ([]models.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ConversationMessage
	for _, m := range s.messages {
		if m.OrganizationID == orgID && m.PersonaID == personaID && m.UserID == userID {
			out = append(out, *m)
		}
	}
	// Newest first, then trim, then restore chronological order for the caller.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListMessagesByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ConversationMessage
	for _, m := range s.messages {
		if m.OrganizationID == orgID && !m.CreatedAt.Before(from) && m.CreatedAt.Before(to) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Risk assessments ---

func (s *MemoryStore) CreateRiskAssessment(ctx context.Context, assessment *models.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *assessment
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.assessments[a.ID] = &a
	return nil
}

func (s *MemoryStore) ListAssessmentsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.RiskAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RiskAssessment
	for _, a := range s.assessments {
		if a.OrganizationID == orgID && !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Escalation queue ---

func (s *MemoryStore) CreateEscalationItem(ctx context.Context, item *models.EscalationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	it := *item
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
		it.UpdatedAt = now
	}
	s.items[it.ID] = &it
	return nil
}

func (s *MemoryStore) GetEscalationItemByID(ctx context.Context, id, orgID uuid.UUID) (*models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if it.OrganizationID != orgID {
		return nil, store.ErrTenantMismatch
	}
	cp := *it
	return &cp, nil
}

func (s *MemoryStore) ListOpenEscalationItems(ctx context.Context, orgID uuid.UUID) ([]models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EscalationItem
	for _, it := range s.items {
		if it.OrganizationID == orgID && it.Status == models.StatusPending {
			out = append(out, *it)
		}
	}
	// Urgent before high, then earliest deadline first within the band.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		}
		return out[i].ResponseTimeLimit.Before(out[j].ResponseTimeLimit)
	})
	return out, nil
}

func (s *MemoryStore) ClaimEscalationItem(ctx context.Context, arg store.ClaimEscalationParams) (*models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[arg.ItemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if it.OrganizationID != arg.OrganizationID {
		return nil, store.ErrTenantMismatch
	}
	if it.Status != models.StatusPending || it.AssignedReviewer != nil {
		return nil, store.ErrAlreadyAssigned
	}

	// Capacity check and claim happen under the same lock so concurrent claims
	// can never over-assign a reviewer.
	assigned := 0
	for _, other := range s.items {
		if other.Status == models.StatusAssigned && other.AssignedReviewer != nil && *other.AssignedReviewer == arg.ReviewerID {
			assigned++
		}
	}
	if assigned >= arg.MaxConcurrentCases {
		return nil, store.ErrAtCapacity
	}

	reviewerID := arg.ReviewerID
	assignedAt := arg.Now
	it.Status = models.StatusAssigned
	it.AssignedReviewer = &reviewerID
	it.AssignedAt = &assignedAt
	it.UpdatedAt = arg.Now

	cp := *it
	return &cp, nil
}

func (s *MemoryStore) ResolveEscalationItem(ctx context.Context, arg store.ResolveEscalationParams) (*models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[arg.ItemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if it.OrganizationID != arg.OrganizationID {
		return nil, store.ErrTenantMismatch
	}
	if it.Status.IsTerminal() {
		return nil, store.ErrAlreadyTerminal
	}
	if it.Status != models.StatusAssigned || it.AssignedReviewer == nil || *it.AssignedReviewer != arg.ReviewerID {
		return nil, store.ErrNotAssignee
	}

	it.Status = arg.NewStatus
	it.UpdatedAt = arg.Now

	cp := *it
	return &cp, nil
}

func (s *MemoryStore) ExpireEscalationItems(ctx context.Context, now time.Time) ([]models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []models.EscalationItem
	for _, it := range s.items {
		if it.Status.IsTerminal() {
			continue
		}
		if it.ResponseTimeLimit.After(now) {
			continue
		}
		it.Status = models.StatusExpired
		it.UpdatedAt = now
		expired = append(expired, *it)
	}
	return expired, nil
}

func (s *MemoryStore) CountAssignedItems(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, it := range s.items {
		if it.Status == models.StatusAssigned && it.AssignedReviewer != nil && *it.AssignedReviewer == reviewerID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListEscalationItemsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.EscalationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EscalationItem
	for _, it := range s.items {
		if it.OrganizationID == orgID && !it.CreatedAt.Before(from) && it.CreatedAt.Before(to) {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Disposition records ---

func (s *MemoryStore) CreateDispositionRecord(ctx context.Context, record *models.DispositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *record
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.dispositions[r.ItemID] = &r
	return nil
}

func (s *MemoryStore) GetDispositionByItemID(ctx context.Context, itemID, orgID uuid.UUID) (*models.DispositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.dispositions[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.OrganizationID != orgID {
		return nil, store.ErrTenantMismatch
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListDispositionsByOrgAndRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.DispositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.DispositionRecord
	for _, r := range s.dispositions {
		if r.OrganizationID == orgID && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
