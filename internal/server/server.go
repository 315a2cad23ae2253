// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: it picks the backend named by the config,
// builds the visitor registry on top of it, and wires handlers and
// middleware to routes. Nothing else in the module constructs dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/config"
	"github.com/sakif/fitness-hub/internal/handler"
	"github.com/sakif/fitness-hub/internal/metrics"
	"github.com/sakif/fitness-hub/internal/middleware"
	sqliteRepo "github.com/sakif/fitness-hub/internal/repository/sqlite"
	"github.com/sakif/fitness-hub/internal/service"
	"github.com/sakif/fitness-hub/internal/supabase"
	"github.com/sakif/fitness-hub/internal/visitor"
)

// upstreamTimeout bounds every call to the hosted project.
const upstreamTimeout = 15 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database (local backend only), the visitor registry
// and the rate limiter's cleanup goroutine. Close releases all three.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB // nil for the supabase backend
	visitors *visitor.Registry
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

// New creates a Server for cfg. cfg is expected to have passed Validate.
func New(cfg config.Config, logger *slog.Logger, opts ...visitor.Option) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.NewCollector(reg),
	}

	backend, err := s.openBackend()
	if err != nil {
		return nil, err
	}
	s.visitors = visitor.NewRegistry(backend, cfg.VisitorIdleTimeout, logger, s.metrics, opts...)
	s.limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, logger)

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openBackend builds the per-visitor client factory for cfg.Backend.
func (s *Server) openBackend() (visitor.Backend, error) {
	switch s.config.Backend {
	case config.BackendSupabase:
		project := supabase.Project{
			URL:        s.config.SupabaseURL,
			AnonKey:    s.config.SupabaseAnonKey,
			HTTPClient: &http.Client{Timeout: upstreamTimeout},
			Logger:     s.logger,
		}
		return visitor.BackendFunc(func(access, refresh string) visitor.Client {
			return supabase.NewClient(project, access, refresh)
		}), nil

	default:
		db, err := sqliteRepo.New(s.config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		tokens, err := auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating token service: %w", err)
		}
		s.db = db

		authSvc := service.NewAuthService(db, tokens, auth.NewPasswordService(), s.logger)
		records := service.NewRecordService(db, db, s.logger)
		return visitor.BackendFunc(func(access, _ string) visitor.Client {
			return service.NewLocalClient(authSvc, records, access)
		}), nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                               → homepage or dashboard (HTML)
// GET    /dashboard, /home               → navigation, redirect to /
// GET    /api/state                      → visitor snapshot (JSON)
// POST   /auth/open, /auth/close         → auth modal
// POST   /auth/tab/{tab}                 → login / signup tab
// POST   /auth/login, /signup, /logout   → session
// POST   /contact, /profile              → records
// POST   /notifications/{id}/dismiss     → close a notification
// GET    /static/*, /healthz, /metrics
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can print it; Recoverer sits inside the
// logger so a panic is still logged as a 500. Every POST is rate limited per
// client IP.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	health := handler.NewHealthHandler(s.pinger(), s.logger)
	s.router.Get("/healthz", health.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	site, err := handler.NewSiteHandler(
		s.visitors,
		s.config.TemplateDir,
		handler.Cookies{Secure: s.config.CookieSecure},
		s.metrics,
		s.logger,
	)
	if err != nil {
		return fmt.Errorf("creating site handler: %w", err)
	}

	s.router.Get("/", site.HandleIndex)
	s.router.Get("/dashboard", site.HandleDashboard)
	s.router.Get("/home", site.HandleHome)
	s.router.Get("/api/state", site.HandleState)

	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/open", site.HandleOpenModal)
			r.Post("/close", site.HandleCloseModal)
			r.Post("/tab/{tab}", site.HandleSwitchTab)
			r.Post("/login", site.HandleLogin)
			r.Post("/signup", site.HandleSignup)
			r.Post("/logout", site.HandleLogout)
		})
		r.Post("/contact", site.HandleContact)
		r.Post("/profile", site.HandleProfile)
		r.Post("/notifications/{id}/dismiss", site.HandleDismiss)
	})

	return nil
}

// pinger avoids handing HealthHandler a typed nil.
func (s *Server) pinger() handler.Pinger {
	if s.db == nil {
		return nil
	}
	return s.db
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Visitors exposes the registry for the idle sweeper and for tests.
func (s *Server) Visitors() *visitor.Registry {
	return s.visitors
}

// Close releases everything New acquired. Visitors are closed first so no
// controller is mid-call when the database goes away.
func (s *Server) Close() {
	if s.visitors != nil {
		s.visitors.Shutdown()
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the idle sweeper and close every visitor, then the database
func (s *Server) Start() error {
	defer s.Close()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.visitors.Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // upstream calls can take upstreamTimeout
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
