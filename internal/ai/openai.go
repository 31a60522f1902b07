package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"soulcare-backend/internal/models"
)

// OpenAIClient talks to an OpenAI-compatible API (chat completions + embeddings)
// and implements Embedder, ReplyGenerator and RiskModel.
type OpenAIClient struct {
	apiKey         string
	baseURL        string
	chatModel      string
	embeddingModel string
	httpClient     *http.Client
}

// Compile-time checks that the client satisfies all three collaborator interfaces.
var (
	_ Embedder       = (*OpenAIClient)(nil)
	_ ReplyGenerator = (*OpenAIClient)(nil)
	_ RiskModel      = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// Timeouts are enforced per call through the request context, not here, so the
// pipeline controls how long each stage may block.
func NewOpenAIClient(apiKey, baseURL, chatModel, embeddingModel string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		httpClient:     &http.Client{Timeout: 90 * time.Second},
	}
}

// --- Wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// postJSON sends a JSON request and decodes the JSON response body into out.
func (c *OpenAIClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("model API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode model API response: %w", err)
	}
	return nil
}

// Embed returns the embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	err := c.postJSON(ctx, "/embeddings", embeddingRequest{
		Model: c.embeddingModel,
		Input: []string{text},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

// GenerateReply produces a candidate reply for the user message, grounded on the
// persona's system prompt and the retrieved context snippets.
func (c *OpenAIClient) GenerateReply(ctx context.Context, systemPrompt, message string, contextSnippets []ContextSnippet) (string, error) {
	system := systemPrompt
	if system == "" {
		system = "You are a supportive, empathetic companion. Respond with warmth and care."
	}
	if len(contextSnippets) > 0 {
		var sb strings.Builder
		sb.WriteString(system)
		sb.WriteString("\n\nRelevant background for this conversation:\n")
		for _, snip := range contextSnippets {
			sb.WriteString("- ")
			sb.WriteString(snip.Content)
			sb.WriteString("\n")
		}
		system = sb.String()
	}

	var resp chatCompletionResponse
	err := c.postJSON(ctx, "/chat/completions", chatCompletionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		Temperature: 0.7,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("chat completion returned no content")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// riskPrompt instructs the model to emit a strict JSON verdict the client can parse.
const riskPrompt = `You are a clinical risk triage assistant for a mental-health support service.
Assess the risk level of the user's latest message.
Respond with a single JSON object, no prose:
{"risk_level": "none|low|medium|high|critical",
 "risk_categories": ["self_harm","crisis","substance_abuse","abuse","eating_disorder","other"],
 "confidence_score": 0.0,
 "reasoning": "one short sentence"}
risk_level must be the ceiling of the category severities, not a sum.`

type riskVerdictWire struct {
	RiskLevel      string   `json:"risk_level"`
	RiskCategories []string `json:"risk_categories"`
	Confidence     float64  `json:"confidence_score"`
	Reasoning      string   `json:"reasoning"`
}

// ClassifyRisk scores the message (with optional recent history for context) and
// normalizes the model's JSON verdict into a RiskVerdict.
func (c *OpenAIClient) ClassifyRisk(ctx context.Context, message string, history []string) (*RiskVerdict, error) {
	userContent := message
	if len(history) > 0 {
		userContent = "Recent conversation:\n" + strings.Join(history, "\n") + "\n\nLatest message:\n" + message
	}

	var resp chatCompletionResponse
	err := c.postJSON(ctx, "/chat/completions", chatCompletionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: riskPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature:    0,
		ResponseFormat: map[string]any{"type": "json_object"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("risk classification returned no choices")
	}

	var wire riskVerdictWire
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse risk verdict JSON: %w", err)
	}

	level := models.RiskLevel(strings.ToLower(strings.TrimSpace(wire.RiskLevel)))
	if !level.IsValid() {
		// An unrecognized level from the model is not trustworthy; let the
		// caller's fail-safe handling take over.
		return nil, fmt.Errorf("model returned unknown risk level %q", wire.RiskLevel)
	}

	categories := make([]models.RiskCategory, 0, len(wire.RiskCategories))
	for _, raw := range wire.RiskCategories {
		cat := models.RiskCategory(strings.ToLower(strings.TrimSpace(raw)))
		if !cat.IsValid() {
			log.Printf("WARN [OpenAIClient] ClassifyRisk: dropping unknown risk category %q", raw)
			continue
		}
		categories = append(categories, cat)
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &RiskVerdict{
		Level:      level,
		Categories: categories,
		Confidence: confidence,
		Reasoning:  wire.Reasoning,
	}, nil
}
