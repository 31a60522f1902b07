package config

import (
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	DatabaseURL     string
	StoreBackend    string // "postgres" or "memory" (memory is for local dev only)
	JWTSecret       string
	HTTPPort        string
	TokenExpiration time.Duration
	EncryptionKey   []byte // Raw key bytes (32 for AES-256), used for content-at-rest encryption

	// Escalation SLA windows per priority band. These are policy inputs, not
	// constants: urgent (critical risk) gets the short window.
	UrgentResponseWindow time.Duration
	HighResponseWindow   time.Duration
	SweepInterval        time.Duration

	// Timeouts on the external model calls. A timed-out call is treated as the
	// respective component's failure mode, never as a silent pass-through.
	GenerationTimeout     time.Duration
	ClassificationTimeout time.Duration
	EmbeddingTimeout      time.Duration

	// Model provider settings (OpenAI-compatible API).
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string

	// Counselor-team alerting.
	SlackAlertToken   string
	SlackAlertChannel string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),

		UrgentResponseWindow: time.Duration(getEnvInt("URGENT_RESPONSE_WINDOW_MINUTES", 15)) * time.Minute,
		HighResponseWindow:   time.Duration(getEnvInt("HIGH_RESPONSE_WINDOW_MINUTES", 60)) * time.Minute,
		SweepInterval:        time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,

		GenerationTimeout:     time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 30)) * time.Second,
		ClassificationTimeout: time.Duration(getEnvInt("CLASSIFICATION_TIMEOUT_SECONDS", 15)) * time.Second,
		EmbeddingTimeout:      time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 10)) * time.Second,

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:      getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		SlackAlertToken:   getEnv("SLACK_ALERT_TOKEN", ""),
		SlackAlertChannel: getEnv("SLACK_ALERT_CHANNEL", ""),

		TokenExpiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" && cfg.StoreBackend == "postgres" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	// Load and decode the Encryption Key (MUST be 64 hex characters for 32 bytes).
	// Conversation and chunk text is encrypted at rest with this key.
	encryptionKeyHex := getEnv("ENCRYPTION_KEY", "")
	if encryptionKeyHex == "" {
		log.Fatal("FATAL: ENCRYPTION_KEY environment variable is not set.")
	}
	encryptionKeyBytes, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		log.Fatalf("FATAL: Failed to decode ENCRYPTION_KEY from hex: %v", err)
	}
	if len(encryptionKeyBytes) != 32 {
		log.Fatalf("FATAL: ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", len(encryptionKeyBytes))
	}
	cfg.EncryptionKey = encryptionKeyBytes

	log.Printf("Loaded config: Port=%s, Store=%s, UrgentWindow=%s, HighWindow=%s, SweepInterval=%s",
		cfg.HTTPPort, cfg.StoreBackend, cfg.UrgentResponseWindow, cfg.HighResponseWindow, cfg.SweepInterval)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, value, fallback, err)
		return fallback
	}
	return n
}
