package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"soulcare-backend/internal/ai"
	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
)

// Chunking policy: chunks target ~1000 words with overlap so a thought split
// across a boundary still lands whole in at least one chunk. The hard ceiling
// is what retrieval correctness depends on; the target is a cost/fidelity
// trade-off for the embedding and the downstream context window.
const (
	chunkTargetWords  = 1000
	chunkMaxWords     = 1200
	chunkOverlapWords = 100
)

// ScoredChunk is one retrieval result: a chunk and its similarity to the query.
type ScoredChunk struct {
	Chunk models.ContextChunk
	Score float64
}

// ContextService owns persona-scoped context: ingestion (chunk + embed + store)
// and nearest-neighbor retrieval. Chunks never cross a persona boundary, even
// within the same organization.
type ContextService struct {
	store            store.Store
	embedder         ai.Embedder
	embeddingTimeout time.Duration
}

// NewContextService creates a new ContextService.
func NewContextService(s store.Store, embedder ai.Embedder, embeddingTimeout time.Duration) *ContextService {
	return &ContextService{
		store:            s,
		embedder:         embedder,
		embeddingTimeout: embeddingTimeout,
	}
}

// Ingest splits text into chunks, embeds each and stores them bound to the
// persona. Returns the created chunk ids in source order.
func (s *ContextService) Ingest(ctx context.Context, orgID, personaID uuid.UUID, text string, sourceType models.SourceType, sourceID uuid.UUID) ([]uuid.UUID, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrValidation)
	}

	// Verify the persona exists under this org before writing anything.
	if _, err := s.store.GetPersonaByID(ctx, personaID, orgID); err != nil {
		return nil, mapStoreError(err)
	}

	segments := splitIntoChunks(text)
	chunks := make([]models.ContextChunk, 0, len(segments))
	ids := make([]uuid.UUID, 0, len(segments))

	for i, segment := range segments {
		embedding, err := s.embed(ctx, segment)
		if err != nil {
			// Ingestion is not a degradable path: a chunk without an embedding
			// would be invisible to retrieval forever.
			log.Printf("ERROR [ContextService] Ingest: Embedding failed for persona %s chunk %d: %v", personaID, i, err)
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		id := uuid.New()
		ids = append(ids, id)
		chunks = append(chunks, models.ContextChunk{
			ID:             id,
			OrganizationID: orgID,
			PersonaID:      personaID,
			Content:        segment,
			Embedding:      embedding,
			SourceType:     sourceType,
			SourceID:       sourceID,
			ChunkIndex:     i,
		})
	}

	if err := s.store.CreateContextChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to save context chunks: %w", err)
	}

	log.Printf("[ContextService] Ingest: Stored %d chunks for persona %s (source %s)", len(chunks), personaID, sourceID)
	return ids, nil
}

// Retrieve returns up to k chunks of the given persona ranked by cosine
// similarity to the query, ties broken by most recent chunk first. A persona
// with no chunks yields an empty result, not an error. Embedding-service
// failure degrades to an empty result: retrieval is an enhancement, not a
// precondition for a reply.
func (s *ContextService) Retrieve(ctx context.Context, orgID, personaID uuid.UUID, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return []ScoredChunk{}, nil
	}

	queryEmbedding, err := s.embed(ctx, query)
	if err != nil {
		log.Printf("WARN [ContextService] Retrieve: Embedding unavailable for persona %s, degrading to empty context: %v", personaID, err)
		return []ScoredChunk{}, nil
	}

	chunks, err := s.store.ListChunksByPersona(ctx, orgID, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona chunks: %w", err)
	}
	if len(chunks) == 0 {
		return []ScoredChunk{}, nil
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		score, err := cosineSimilarity(queryEmbedding, c.Embedding)
		if err != nil {
			log.Printf("WARN [ContextService] Retrieve: Skipping chunk %s: %v", c.ID, err)
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.CreatedAt.After(scored[j].Chunk.CreatedAt)
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteBySource removes the chunks created from one source document. Chunks
// are otherwise immutable; they are only ever deleted with their source.
func (s *ContextService) DeleteBySource(ctx context.Context, orgID, personaID, sourceID uuid.UUID) (int, error) {
	deleted, err := s.store.DeleteChunksBySource(ctx, orgID, personaID, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	log.Printf("[ContextService] DeleteBySource: Removed %d chunks for source %s (persona %s)", deleted, sourceID, personaID)
	return deleted, nil
}

// embed calls the embedder under the configured timeout.
func (s *ContextService) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.embeddingTimeout)
	defer cancel()
	return s.embedder.Embed(embedCtx, text)
}

// splitIntoChunks splits text into word-bounded segments of at most
// chunkMaxWords, targeting chunkTargetWords with chunkOverlapWords of overlap
// between consecutive segments.
func splitIntoChunks(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkMaxWords {
		return []string{strings.Join(words, " ")}
	}

	var segments []string
	step := chunkTargetWords - chunkOverlapWords
	for start := 0; start < len(words); start += step {
		end := start + chunkTargetWords
		if end > len(words) {
			end = len(words)
		}
		segments = append(segments, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return segments
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New("empty embedding vector")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch (%d vs %d)", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-magnitude embedding vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// mapStoreError translates store sentinels into the service taxonomy.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrTenantMismatch):
		return fmt.Errorf("%w: %v", ErrTenantMismatch, err)
	default:
		return err
	}
}
