// Package server assembles the job API HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pb40development/ifc-normalizer/internal/jobs"
	"github.com/pb40development/ifc-normalizer/internal/server/handlers"
	"github.com/pb40development/ifc-normalizer/internal/server/middleware"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
)

// Config holds the server settings.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the server defaults. Write timeout is generous
// because IFC downloads can be large.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3000,
		ReadTimeout:     5 * time.Minute,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server is the job API server.
type Server struct {
	cfg      Config
	registry *jobs.Registry
	http     *http.Server
}

// New assembles the server over the given registry.
func New(cfg Config, registry *jobs.Registry) *Server {
	s := &Server{cfg: cfg, registry: registry}
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// routes builds the endpoint table with the middleware chain applied.
func (s *Server) routes() http.Handler {
	h := handlers.New(s.registry)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /status/{jobId}", h.Status)
	mux.HandleFunc("GET /download/ifc/{jobId}", h.DownloadIFC)
	mux.HandleFunc("GET /download/report/{jobId}", h.DownloadReport)
	mux.HandleFunc("DELETE /jobs/{jobId}", h.Delete)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.Logger,
		middleware.CORS,
	)
}

// Handler exposes the assembled handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe starts the server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	logging.Default().Info().Str("addr", s.http.Addr).Msg("Job API listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.registry.Shutdown(ctx)
}
