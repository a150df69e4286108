// Package ops exposes the operational HTTP surface: liveness, Prometheus
// metrics, and a JSON progress snapshot. It is not a data-plane API
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"warden/internal/platform/config"
	"warden/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsFunc returns a point-in-time snapshot for /status. Implementations
// must be safe for concurrent use
type StatsFunc func() any

// Server serves the ops endpoints
type Server struct {
	addr  string
	log   logger.Logger
	srv   *http.Server
	stats map[string]StatsFunc
}

// New builds the ops server. Each stats source appears as a top-level key
// in the /status document
func New(cfg config.Conf, stats map[string]StatsFunc) *Server {
	addr := cfg.MayString("OPS_ADDR", ":9090")

	s := &Server{
		addr:  addr,
		log:   *logger.Named("ops"),
		stats: stats,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run starts the server and blocks until it is shut down
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.addr).Msg("ops listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	doc := make(map[string]any, len(s.stats)+1)
	doc["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	for name, fn := range s.stats {
		doc[name] = fn()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.log.Error().Err(err).Msg("status encode failed")
	}
}
