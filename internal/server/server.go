// Package server provides the HTTP server for the mudra gesture recognizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration. Only the health and live
// endpoints are served when Store is nil.
type Config struct {
	StaticDir    string
	Store        *store.Store
	Gesture      gesture.Config
	SessionTTL   time.Duration
	MaxBodyBytes int64

	// Dispatcher receives confirmed changes from API sessions. The server
	// registers its live feed on it. A private one is created when nil.
	Dispatcher *events.Dispatcher
	Metrics    *metrics.Metrics
}

// Server represents the HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	start    time.Time
	hub      *Hub
	sessions *api.SessionHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Gesture == (gesture.Config{}) {
		config.Gesture = gesture.DefaultConfig()
	}
	if config.Dispatcher == nil {
		var observer events.ErrorObserver
		if config.Metrics != nil {
			observer = config.Metrics
		}
		config.Dispatcher = events.NewDispatcher(observer)
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		hub:    NewHub(),
	}
	config.Dispatcher.Register(s.hub)
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/live", s.hub)

	if s.config.Store != nil {
		s.sessions = api.NewSessionHandler(api.Config{
			Store:    s.config.Store,
			Defaults: s.config.Gesture,
			Options: session.Options{
				Dispatcher: s.config.Dispatcher,
				Metrics:    s.config.Metrics,
			},
			TTL:          s.config.SessionTTL,
			MaxBodyBytes: s.config.MaxBodyBytes,
		})
		s.mux.Handle("/api/sessions", s.sessions)
		s.mux.Handle("/api/sessions/", s.sessions)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	live := 0
	if s.sessions != nil {
		live = s.sessions.Live()
	}

	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"sessions": live,
		"clients":  s.hub.Clients(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends live sessions and disconnects live clients.
func (s *Server) Close() {
	if s.sessions != nil {
		s.sessions.Close()
	}
	s.hub.Close()
}
