package ai

import (
	"context"

	"soulcare-backend/internal/models"
)

// The pipeline consumes the external models through these three interfaces and
// is agnostic to the provider behind them. Tests inject deterministic fakes.

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ContextSnippet is a retrieved chunk handed to the generator as grounding.
type ContextSnippet struct {
	Content string
	Score   float64
}

// ReplyGenerator produces a candidate natural-language reply for a user message,
// given the persona's system prompt and retrieved context.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, systemPrompt, message string, contextSnippets []ContextSnippet) (string, error)
}

// RiskVerdict is the raw classifier output before derivation rules are applied.
type RiskVerdict struct {
	Level      models.RiskLevel
	Categories []models.RiskCategory
	Confidence float64
	Reasoning  string
}

// RiskModel scores a message for risk level and category set.
type RiskModel interface {
	ClassifyRisk(ctx context.Context, message string, history []string) (*RiskVerdict, error)
}
