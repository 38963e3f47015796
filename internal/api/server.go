// Package api implements the HTTP API of compass-server, the progress
// sync backend for the compass CLI.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cybercompass/compass/internal/serverdb"
)

// Server is the HTTP API server for compass-server.
type Server struct {
	config  Config
	http    *http.Server
	store   *serverdb.ServerDB
	metrics *Metrics
}

// NewServer creates a new Server with the given config and store.
func NewServer(cfg Config, store *serverdb.ServerDB) (*Server, error) {
	s := &Server{
		config:  cfg,
		store:   store,
		metrics: NewMetrics(),
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	// Anonymous progress (public; an anonymous session has no credential)
	mux.HandleFunc("POST /v1/progress/anonymous", s.handleSubmitAnonymous)
	mux.HandleFunc("GET /v1/progress/anonymous", s.handleGetAnonymousProgress)
	mux.HandleFunc("POST /v1/progress/sync-beacon", s.handleSyncBeacon)

	// Authenticated progress
	mux.HandleFunc("GET /v1/progress", s.requireAuth(s.handleGetProgress))
	mux.HandleFunc("POST /v1/progress/migrate", s.requireAuth(s.handleMigrate))

	return chain(mux, recoverPanics, tracing, observe(s.metrics), limitBody(s.config.MaxBodyBytes))
}

// handleHealth returns a health check response, pinging the server DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
