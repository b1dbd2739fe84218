// Package web provides the HTTP server, REST API and dashboard pages of the skip tracker.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/justestif/go-spotify-skip-tracker/internal/auth"
	"github.com/justestif/go-spotify-skip-tracker/internal/db"
	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	sessionPurgeInterval = time.Hour
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	Credentials    auth.Credentials
	Database       *db.DB
	TemplatesFS    fs.FS
	StaticFS       fs.FS
	TrackerOptions []tracker.Option
	HighThreshold  int
	TopN           int
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	registry *prometheus.Registry
	purge    func(ctx context.Context)
}

// NewServer creates a new web server backed by the database.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Database == nil {
		return nil, errors.New("database is required")
	}

	spotifyAuth, err := auth.NewSpotifyAuthenticator(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	skipService := skips.NewService(cfg.Database)
	trackerOpts := append([]tracker.Option{tracker.WithMetrics(tracker.NewMetrics(reg))}, cfg.TrackerOptions...)
	sessions := NewDBSessionStore(cfg.Database)

	handlers := NewHandlers(HandlersConfig{
		Auth:          spotifyAuth,
		OAuth:         auth.OAuthConfig(cfg.Credentials),
		Sessions:      sessions,
		Templates:     templates,
		Skips:         skipService,
		Users:         cfg.Database.Users(),
		Tracker:       tracker.New(skipService, trackerOpts...),
		HighThreshold: cfg.HighThreshold,
		TopN:          cfg.TopN,
	})

	s := newServer(cfg.Addr, handlers, cfg.StaticFS, reg)
	s.purge = func(ctx context.Context) { sessions.PurgeExpired(ctx, sessionPurgeInterval) }
	return s, nil
}

// newServer wires the router for the given handlers.
func newServer(addr string, handlers *Handlers, staticFS fs.FS, reg *prometheus.Registry) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: handlers,
		registry: reg,
	}

	s.setupMiddleware()
	s.setupRoutes(staticFS)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // /track-skip waits for the skip window
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(hlog.NewHandler(log.Logger))
	s.router.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	s.router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		level := zerolog.DebugLevel
		if status >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		hlog.FromRequest(r).WithLevel(level).
			Str("method", r.Method).
			Str("url", r.URL.RequestURI()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	h := s.handlers

	s.router.Method(http.MethodGet, "/metrics", newMetricsHandler(s.registry))

	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(newPromMiddleware(s.registry, "web"))

		r.Get("/", h.Home)
		r.Get("/dashboard", h.Dashboard)
		r.Post("/dashboard/delete", h.DeleteSongs)

		r.Get("/auth/login", h.Login)
		r.Get("/callback", h.Callback)
		r.Post("/auth/logout", h.Logout)
	})

	// REST API
	s.router.Group(func(r chi.Router) {
		r.Use(newPromMiddleware(s.registry, "api"))
		r.Use(middleware.NoCache)
		r.Use(h.RequireSession)

		r.Get("/api/analytics", h.Analytics)
		r.Get("/api/skipped-songs", h.SkippedSongs)
		r.Post("/api/delete-songs", h.DeleteSkippedSongs)
		r.Get("/playlists", h.Playlists)
		r.Post("/track-skip", h.TrackSkip)
	})
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Info().Msgf("starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals
// or when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.purge != nil {
		go s.purge(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
