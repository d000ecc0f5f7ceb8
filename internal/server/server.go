// Package server provides the HTTP server for the mudra tracking service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultStreamInterval is how often stream clients are checked for a new snapshot.
const DefaultStreamInterval = 66 * time.Millisecond

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Tracker   api.Tracker
	Store     *store.Store
	Recorder  *store.Recorder
	// PersistConfig is called after each accepted PUT /api/config.
	PersistConfig  func(config.Tracking) error
	StreamInterval time.Duration
	Logger         *zap.Logger
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	log    *zap.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		log:    logging.OrNop(config.Logger).Named("server"),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.config.Tracker != nil {
		trackingHandler := api.NewTrackingHandler(s.config.Tracker, s.config.PersistConfig, s.log)
		s.mux.Handle("/api/snapshot", trackingHandler)
		s.mux.Handle("/api/stats", trackingHandler)
		s.mux.Handle("/api/config", trackingHandler)

		s.mux.Handle("/api/stream", NewSnapshotStream(s.config.Tracker, s.config.StreamInterval, s.log))
	}

	if s.config.Store != nil {
		sessionHandler := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionHandler)
		s.mux.Handle("/api/sessions/", sessionHandler)
	}

	if s.config.Recorder != nil {
		s.mux.Handle("/api/recording", api.NewRecordingHandler(s.config.Recorder))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Tracker != nil {
		response["tracker"] = s.config.Tracker.State().String()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
