// Package api implements the HTTP layer for VitalWatch. Handlers are methods
// on *Server. Each handler file is responsible for one resource group and
// only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
	"github.com/nyashahama/vitalwatch-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// RequestTimeout bounds every request, including the model round trip
	// behind the assessment endpoints. Default: 60s.
	RequestTimeout time.Duration
}

// Assessor runs one risk assessment. *assessment.Service is the production
// implementation; tests inject a stub.
type Assessor interface {
	Assess(ctx context.Context, req assessment.HealthProfileRequest) (assessment.Result, error)
	Provider() string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// repo is the patient registry and assessment history.
	repo store.Repository

	// assessor calls the text-generation model.
	assessor Assessor

	// alerts enqueues high-risk alert emails. Nil disables alerts.
	alerts worker.Enqueuer

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to an http.Server.
func NewServer(
	repo store.Repository,
	assessor Assessor,
	alerts worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		repo:     repo,
		assessor: assessor,
		alerts:   alerts,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)

		r.Route("/patients", func(r chi.Router) {
			r.Get("/", s.handleListPatients)
			r.Post("/", s.handleCreatePatient)

			r.Route("/{patientID}", func(r chi.Router) {
				r.Get("/", s.handleGetPatient)
				r.Get("/assessments", s.handleListAssessments)
				r.Post("/assessments", s.handleAssessPatient)
			})
		})

		// Stateless assessment of an ad-hoc profile.
		r.Post("/risk-predictions", s.handlePredictRisk)
	})

	return r
}
