package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crisp-labs/interview-engine/internal/config"
	"github.com/crisp-labs/interview-engine/internal/evaluator"
	"github.com/crisp-labs/interview-engine/internal/interview"
	"github.com/crisp-labs/interview-engine/internal/models"
	"github.com/crisp-labs/interview-engine/internal/storage"
)

// ResumeParser uploads a resume document to the evaluator for contact
// extraction. May be nil, in which case the endpoint reports the
// feature unavailable.
type ResumeParser interface {
	ParseResume(ctx context.Context, filename string, file io.Reader) (*evaluator.ResumeProfile, error)
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	orchestrator   *interview.Orchestrator
	resumeParser   ResumeParser
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	orchestrator *interview.Orchestrator,
	parser ResumeParser,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		orchestrator:   orchestrator,
		resumeParser:   parser,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Candidate-facing routes (public; candidates hold no API keys)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/active", s.handleActiveSession)
			r.Delete("/active", s.handleStartOver)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/profile", s.handleCompleteProfile)
				r.Post("/answer", s.handleSubmitAnswer)
				r.Post("/resume", s.handleResumeSession)
				r.Post("/abandon", s.handleAbandonSession)
				r.Get("/events", s.handleSessionEvents)
			})

			// Dashboard routes (API-key protected)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware.Authenticate)
				r.With(s.authMiddleware.RequirePermission(models.PermissionSessionsRead)).Get("/", s.handleListSessions)
				r.With(s.authMiddleware.RequirePermission(models.PermissionSessionsRead)).Get("/{id}", s.handleGetSession)
			})
		})

		r.Post("/resume/parse", s.handleParseResume)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
