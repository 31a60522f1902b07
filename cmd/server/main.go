package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soulcare-backend/internal/ai"
	"soulcare-backend/internal/api"
	"soulcare-backend/internal/config"
	"soulcare-backend/internal/crypto"
	"soulcare-backend/internal/handlers"
	"soulcare-backend/internal/notify"
	"soulcare-backend/internal/services"
	"soulcare-backend/internal/store"
	"soulcare-backend/internal/store/memory"
	"soulcare-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting SoulCare Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// --- Create AEAD Cipher for Content Encryption ---
	aead, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to create AES-GCM cipher: %v", err)
	}
	log.Println("AES-GCM cipher initialized.")

	// 2. Initialize Storage Backend
	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		// Volatile, single-process store. Local development only.
		st = memory.NewMemoryStore()
		log.Println("WARN: Using in-memory store. All data is lost on restart.")
	default:
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()

		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(dbCtx); err != nil {
			log.Fatalf("FATAL: Unable to ping database: %v\n", err)
		}
		log.Println("Database connection pool established and pinged successfully.")

		st = postgres.NewPostgresStore(dbpool, aead)
		log.Println("Postgres store initialized.")
	}

	// --- Initialize Model Provider Client ---
	if cfg.OpenAIAPIKey == "" {
		log.Println("WARN: OPENAI_API_KEY is not set; model calls will fail.")
	}
	modelClient := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.EmbeddingModel)
	log.Printf("Model client initialized (chat=%s, embedding=%s).", cfg.ChatModel, cfg.EmbeddingModel)

	// --- Initialize Notifier ---
	// Keep the interface value nil when Slack is unconfigured; a typed nil
	// pointer inside the interface would defeat the services' nil checks.
	var notifier services.Notifier
	if slackNotifier := notify.NewSlackNotifier(cfg.SlackAlertToken, cfg.SlackAlertChannel); slackNotifier != nil {
		notifier = slackNotifier
		log.Printf("Slack notifier initialized (channel=%s).", cfg.SlackAlertChannel)
	} else {
		log.Println("WARN: Slack alerting is not configured; expiry and escalation alerts are log-only.")
	}

	// --- Initialize Services ---
	authService := services.NewAuthService(st, cfg)
	log.Println("AuthService initialized.")
	contextService := services.NewContextService(st, modelClient, cfg.EmbeddingTimeout)
	log.Println("ContextService initialized.")
	riskService := services.NewRiskService(st, modelClient, cfg.ClassificationTimeout)
	log.Println("RiskService initialized.")
	queueService := services.NewQueueService(st, cfg, notifier)
	log.Println("QueueService initialized.")
	dispositionService := services.NewDispositionService(st, notifier)
	log.Println("DispositionService initialized.")
	pipelineService := services.NewPipelineService(st, contextService, riskService, queueService, modelClient, cfg.GenerationTimeout)
	log.Println("PipelineService initialized.")
	personaService := services.NewPersonaService(st, contextService)
	log.Println("PersonaService initialized.")
	reviewerService := services.NewReviewerService(st)
	log.Println("ReviewerService initialized.")
	analyticsService := services.NewAnalyticsService(st)
	log.Println("AnalyticsService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	personaHandler := handlers.NewPersonaHandlers(personaService)
	conversationHandler := handlers.NewConversationHandlers(pipelineService)
	reviewerHandler := handlers.NewReviewerHandlers(reviewerService)
	queueHandler := handlers.NewQueueHandlers(queueService, dispositionService)
	analyticsHandler := handlers.NewAnalyticsHandlers(analyticsService)
	log.Println("Handlers initialized.")

	// 3. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:         authHandler,
		PersonaHandler:      personaHandler,
		ConversationHandler: conversationHandler,
		ReviewerHandler:     reviewerHandler,
		QueueHandler:        queueHandler,
		AnalyticsHandler:    analyticsHandler,
		Config:              cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 4. Start SLA Sweeper
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	go queueService.RunSweeper(sweeperCtx)
	log.Printf("SLA sweeper started (interval=%s).", cfg.SweepInterval)

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	sweeperCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
