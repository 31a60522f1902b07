package api

import (
	"log"
	"net/http"
	"time"

	"soulcare-backend/internal/config"
	"soulcare-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	PersonaHandler      *handlers.PersonaHandlers
	ConversationHandler *handlers.ConversationHandlers
	ReviewerHandler     *handlers.ReviewerHandlers
	QueueHandler        *handlers.QueueHandlers
	AnalyticsHandler    *handlers.AnalyticsHandlers
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Persona Routes ---
		if deps.PersonaHandler != nil {
			r.Route("/personas", func(r chi.Router) {
				r.Post("/", deps.PersonaHandler.HandleCreatePersona)
				r.Get("/", deps.PersonaHandler.HandleListPersonas)
				r.Get("/{personaID}", deps.PersonaHandler.HandleGetPersona)
				r.Post("/{personaID}/documents", deps.PersonaHandler.HandleIngestDocument)
				r.Delete("/{personaID}/documents/{sourceID}", deps.PersonaHandler.HandleDeleteDocument)
			})
		} else {
			log.Println("WARN: PersonaHandler dependency is nil, skipping /v1/personas routes.")
		}

		// --- Mount Conversation Routes ---
		if deps.ConversationHandler != nil {
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/{personaID}/messages", deps.ConversationHandler.HandleSubmitMessage)
			})
		} else {
			log.Println("WARN: ConversationHandler dependency is nil, skipping /v1/conversations routes.")
		}

		// --- Mount Reviewer Routes ---
		if deps.ReviewerHandler != nil {
			r.Route("/reviewers", func(r chi.Router) {
				r.Post("/", deps.ReviewerHandler.HandleCreateReviewer)
				r.Get("/", deps.ReviewerHandler.HandleListReviewers)
				r.Patch("/{reviewerID}", deps.ReviewerHandler.HandleUpdateReviewer)
			})
		} else {
			log.Println("WARN: ReviewerHandler dependency is nil, skipping /v1/reviewers routes.")
		}

		// --- Mount Escalation Queue Routes ---
		if deps.QueueHandler != nil {
			r.Route("/queue", func(r chi.Router) {
				r.Get("/", deps.QueueHandler.HandleListQueue)
				r.Post("/{itemID}/claim", deps.QueueHandler.HandleClaim)
				r.Post("/{itemID}/resolve", deps.QueueHandler.HandleResolve)
				r.Get("/{itemID}/disposition", deps.QueueHandler.HandleGetDisposition)
			})
		} else {
			log.Println("WARN: QueueHandler dependency is nil, skipping /v1/queue routes.")
		}

		// --- Mount Analytics Routes ---
		if deps.AnalyticsHandler != nil {
			r.Get("/analytics", deps.AnalyticsHandler.HandleGetAnalytics)
		} else {
			log.Println("WARN: AnalyticsHandler dependency is nil, skipping /v1/analytics route.")
		}
	})

	return r
}
