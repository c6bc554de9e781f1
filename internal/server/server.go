// Package server provides the HTTP server and routing for StockWatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stockwatch/stockwatch/internal/auth"
	"github.com/stockwatch/stockwatch/internal/config"
	companieshandlers "github.com/stockwatch/stockwatch/internal/modules/companies/handlers"
	purchasehandlers "github.com/stockwatch/stockwatch/internal/modules/purchases/handlers"
)

// Config holds server configuration
type Config struct {
	Log              zerolog.Logger
	Config           *config.Config
	AuthHandler      *auth.Handler
	AuthMiddleware   *auth.Middleware
	CompaniesHandler *companieshandlers.Handler
	PurchasesHandler *purchasehandlers.Handler
	SystemHandlers   *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS only matters when the frontend dev server runs on another port
	if devMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	// Liveness check outside the API tree
	s.router.Get("/health", cfg.SystemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Unauthenticated surface
		cfg.AuthHandler.RegisterRoutes(r)
		r.Get("/system/health", cfg.SystemHandlers.HandleHealth)

		// Everything else requires a session
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireUser)

			cfg.AuthHandler.RegisterProtectedRoutes(r)
			cfg.CompaniesHandler.RegisterRoutes(r)
			cfg.PurchasesHandler.RegisterRoutes(r)

			r.Get("/system/stats", cfg.SystemHandlers.HandleStats)
			r.Post("/system/backup", cfg.SystemHandlers.HandleTriggerBackup)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
