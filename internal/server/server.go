package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/internal/config"
	"github.com/grahms/segmentweaver/internal/render"
)

// Server is the HTTP API server for segmentweaver.
type Server struct {
	router   chi.Router
	svc      *render.Service
	log      *slog.Logger
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *Metrics
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *render.Service, log *slog.Logger, cfg config.Config) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		svc:      svc,
		log:      log,
		cfg:      cfg,
		registry: reg,
		metrics:  NewMetrics(reg),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics exposes the collectors, mainly for tests.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Mount attaches an extra handler, such as the MCP transport, under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/render", s.handleRender)
	r.Post("/validate", s.handleValidate)
	r.Post("/import", s.handleImport)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": sw.Version})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
