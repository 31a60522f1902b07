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

func newPersonaService(st *memory.MemoryStore) *PersonaService {
	embedder := &stubEmbedder{fallback: []float32{0.5, 0.5}}
	return NewPersonaService(st, NewContextService(st, embedder, time.Second))
}

func TestCreatePersona(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newPersonaService(st)
	orgID, trainerID := uuid.New(), uuid.New()

	prompt := "You are a warm, attentive listener."
	resp, err := svc.CreatePersona(context.Background(), orgID, trainerID, models.CreatePersonaRequest{
		Name:         "  Grandma Rose  ",
		SystemPrompt: &prompt,
	})
	require.NoError(t, err)

	assert.Equal(t, "Grandma Rose", resp.Name)
	assert.Equal(t, trainerID, resp.TrainerID)
	assert.True(t, resp.IsActive)

	_, err = svc.CreatePersona(context.Background(), orgID, trainerID, models.CreatePersonaRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPersonaTenantScoping(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newPersonaService(st)
	orgA, orgB := uuid.New(), uuid.New()
	persona := seedPersona(t, st, orgA)

	got, err := svc.GetPersona(context.Background(), orgA, persona.ID)
	require.NoError(t, err)
	assert.Equal(t, persona.ID, got.ID)

	// Same id through the wrong org is a loud mismatch, not a quiet not-found.
	_, err = svc.GetPersona(context.Background(), orgB, persona.ID)
	assert.ErrorIs(t, err, ErrTenantMismatch)

	_, err = svc.GetPersona(context.Background(), orgA, uuid.New())
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}

func TestListPersonasReturnsOnlyOrgPersonas(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newPersonaService(st)
	orgA, orgB := uuid.New(), uuid.New()
	mine := seedPersona(t, st, orgA)
	seedPersona(t, st, orgB)

	personas, err := svc.ListPersonas(context.Background(), orgA)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, mine.ID, personas[0].ID)
}

func TestIngestDocumentCreatesChunks(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := newPersonaService(st)
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)

	resp, err := svc.IngestDocument(context.Background(), orgID, persona.ID, "She grew up by the coast and loves telling stories about the sea.")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.SourceID)
	assert.Equal(t, 1, resp.ChunkCount)
	require.Len(t, resp.ChunkIDs, 1)

	chunks, err := st.ListChunksByPersona(context.Background(), orgID, persona.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, resp.SourceID, chunks[0].SourceID)
	assert.Equal(t, models.SourceDocument, chunks[0].SourceType)
}
