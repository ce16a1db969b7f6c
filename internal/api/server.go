package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/config"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/metrics"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// Enqueuer accepts scan requests for background execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, req scanner.ScanRequest) error
}

// Catalog lists selectable municipalities.
type Catalog interface {
	Municipalities() []scanner.Municipality
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server wires HTTP handlers to the scan queue and session store.
type Server struct {
	router   chi.Router
	store    scanner.SessionStore
	queue    Enqueuer
	catalog  Catalog
	idGen    scanner.IDGenerator
	clock    scanner.Clock
	cfg      config.Config
	logger   *zap.Logger
	checks   []ReadinessCheck
	enqueueT time.Duration
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store scanner.SessionStore,
	queue Enqueuer,
	catalog Catalog,
	idGen scanner.IDGenerator,
	clock scanner.Clock,
	cfg config.Config,
	logger *zap.Logger,
	checks ...ReadinessCheck,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		queue:    queue,
		catalog:  catalog,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		checks:   checks,
		enqueueT: 5 * time.Second,
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthz)
		r.Get("/municipalities", s.listMunicipalities)
		r.Route("/scan", func(r chi.Router) {
			r.Post("/start", s.startScan)
			r.Route("/{scan_id}", func(r chi.Router) {
				r.Get("/status", s.getScanStatus)
				r.Get("/results", s.getScanResults)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
