package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/api/handler"
	mw "github.com/edvin/instance-deploy/internal/api/middleware"
	"github.com/edvin/instance-deploy/internal/metrics"
)

type Server struct {
	router     chi.Router
	logger     zerolog.Logger
	dispatcher handler.Dispatcher
	verifier   mw.TokenVerifier
	registry   *prometheus.Registry
}

// NewServer wires the deploy endpoint. Collectors, including the HTTP
// metrics, are registered with and served from registry.
func NewServer(logger zerolog.Logger, dispatcher handler.Dispatcher, verifier mw.TokenVerifier, registry *prometheus.Registry) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		dispatcher: dispatcher,
		verifier:   verifier,
		registry:   registry,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics(s.registry))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	// The caller may post to any path.
	provision := handler.NewProvision(s.dispatcher)
	s.router.Group(func(r chi.Router) {
		r.Use(mw.ActivationToken(s.verifier))
		r.Post("/", provision.Create)
		r.Post("/*", provision.Create)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
