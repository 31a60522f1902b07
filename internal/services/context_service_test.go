package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContextService(st *memory.MemoryStore, embedder *stubEmbedder) *ContextService {
	return NewContextService(st, embedder, time.Second)
}

func wordsOf(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestSplitIntoChunksBounds(t *testing.T) {
	t.Run("short text stays whole", func(t *testing.T) {
		segments := splitIntoChunks(wordsOf(500))
		require.Len(t, segments, 1)
		assert.Len(t, strings.Fields(segments[0]), 500)
	})

	t.Run("long text respects the word ceiling", func(t *testing.T) {
		segments := splitIntoChunks(wordsOf(3000))
		require.Greater(t, len(segments), 1)
		for _, seg := range segments {
			assert.LessOrEqual(t, len(strings.Fields(seg)), chunkMaxWords)
		}
	})

	t.Run("consecutive segments overlap", func(t *testing.T) {
		// Number the words so overlap is observable.
		words := make([]string, 2500)
		for i := range words {
			words[i] = "w" + string(rune('a'+i%26)) + uuid.NewString()[:4]
		}
		text := strings.Join(words, " ")
		segments := splitIntoChunks(text)
		require.Greater(t, len(segments), 1)

		first := strings.Fields(segments[0])
		second := strings.Fields(segments[1])
		// The tail of one segment is the head of the next.
		assert.Equal(t, first[len(first)-chunkOverlapWords:], second[:chunkOverlapWords])
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, splitIntoChunks("   "))
	})
}

func TestIngestStoresChunksForPersona(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{fallback: []float32{0.1, 0.2}})

	sourceID := uuid.New()
	ids, err := svc.Ingest(context.Background(), orgID, persona.ID, wordsOf(2500), models.SourceDocument, sourceID)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	chunks, err := st.ListChunksByPersona(context.Background(), orgID, persona.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, persona.ID, c.PersonaID)
		assert.Equal(t, sourceID, c.SourceID)
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestIngestRejectsEmptyText(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{fallback: []float32{1}})

	_, err := svc.Ingest(context.Background(), orgID, persona.ID, "  \n ", models.SourceDocument, uuid.New())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIngestFailsWhenEmbedderFails(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{err: errors.New("embedding service down")})

	_, err := svc.Ingest(context.Background(), orgID, persona.ID, "some persona background", models.SourceDocument, uuid.New())
	require.Error(t, err)

	// Nothing was stored: a chunk without an embedding would never be retrievable.
	chunks, err := st.ListChunksByPersona(context.Background(), orgID, persona.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
	}}
	svc := newContextService(st, embedder)

	mkChunk := func(content string, vec []float32, createdAt time.Time) models.ContextChunk {
		return models.ContextChunk{
			ID:             uuid.New(),
			OrganizationID: orgID,
			PersonaID:      persona.ID,
			Content:        content,
			Embedding:      vec,
			SourceType:     models.SourceDocument,
			SourceID:       uuid.New(),
			CreatedAt:      createdAt,
		}
	}
	now := time.Now()
	require.NoError(t, st.CreateContextChunks(context.Background(), []models.ContextChunk{
		mkChunk("orthogonal", []float32{0, 1}, now.Add(-3*time.Hour)),
		mkChunk("aligned-old", []float32{1, 0}, now.Add(-2*time.Hour)),
		mkChunk("aligned-new", []float32{2, 0}, now.Add(-1*time.Hour)), // same direction, same cosine
		mkChunk("diagonal", []float32{1, 1}, now),
	}))

	results, err := svc.Retrieve(context.Background(), orgID, persona.ID, "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Perfect matches first, ties broken by recency, then the diagonal.
	assert.Equal(t, "aligned-new", results[0].Chunk.Content)
	assert.Equal(t, "aligned-old", results[1].Chunk.Content)
	assert.Equal(t, "diagonal", results[2].Chunk.Content)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestRetrieveNeverCrossesPersonaBoundary(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	personaA := seedPersona(t, st, orgID)
	personaB := seedPersona(t, st, orgID)

	embedder := &stubEmbedder{fallback: []float32{1, 0}}
	svc := newContextService(st, embedder)

	_, err := svc.Ingest(context.Background(), orgID, personaA.ID, "background for persona A", models.SourceDocument, uuid.New())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), orgID, personaB.ID, "background for persona B", models.SourceDocument, uuid.New())
	require.NoError(t, err)

	results, err := svc.Retrieve(context.Background(), orgID, personaA.ID, "anything", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, personaA.ID, results[0].Chunk.PersonaID)
	assert.Equal(t, "background for persona A", results[0].Chunk.Content)
}

func TestRetrieveEmptyPersonaYieldsEmptyResult(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{fallback: []float32{1}})

	results, err := svc.Retrieve(context.Background(), orgID, persona.ID, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDegradesWhenEmbedderFails(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{err: errors.New("embedding service down")})

	results, err := svc.Retrieve(context.Background(), orgID, persona.ID, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteBySourceRemovesOnlyThatSource(t *testing.T) {
	st := memory.NewMemoryStore()
	orgID := uuid.New()
	persona := seedPersona(t, st, orgID)
	svc := newContextService(st, &stubEmbedder{fallback: []float32{1, 0}})

	keepSource := uuid.New()
	dropSource := uuid.New()
	_, err := svc.Ingest(context.Background(), orgID, persona.ID, "keep this text", models.SourceDocument, keepSource)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), orgID, persona.ID, "drop this text", models.SourceDocument, dropSource)
	require.NoError(t, err)

	deleted, err := svc.DeleteBySource(context.Background(), orgID, persona.ID, dropSource)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	chunks, err := st.ListChunksByPersona(context.Background(), orgID, persona.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, keepSource, chunks[0].SourceID)
}
