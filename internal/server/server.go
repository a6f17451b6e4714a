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

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/modules/ledger"
	"github.com/restakelabs/risk-oracle/internal/modules/oracle"
	"github.com/restakelabs/risk-oracle/internal/modules/preferences"
	"github.com/restakelabs/risk-oracle/internal/modules/rebalancing"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
	"github.com/restakelabs/risk-oracle/internal/modules/riskreport"
)

// Config holds server configuration
type Config struct {
	Port        int
	DevMode     bool
	Log         zerolog.Logger
	Guard       *auth.Guard
	Credentials auth.Credentials

	Registry    *registry.Handler
	Oracle      *oracle.Handler
	Preferences *preferences.Handler
	Ledger      *ledger.Handler
	Rebalancing *rebalancing.Handler
	RiskReport  *riskreport.Handler
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		port:   cfg.Port,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Caller-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Resolve the calling principal for every request
	s.router.Use(auth.Middleware(cfg.Guard, cfg.Credentials))

	if !cfg.DevMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/avs", func(r chi.Router) {
			cfg.Registry.Routes(r)
			r.Post("/{name}/refresh", cfg.Oracle.HandleRefresh)
		})

		r.Put("/oracle", cfg.Oracle.HandleSetOracle)
		r.Put("/preferences", cfg.Preferences.HandleSet)
		r.Post("/deposits", cfg.Ledger.HandleDeposit)
		r.Post("/rebalance/{user}", cfg.Rebalancing.HandleTrigger)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", cfg.Ledger.HandleListUsers)
			r.Get("/{user}/preferences", cfg.Preferences.HandleGet)
			r.Get("/{user}/balances", cfg.Ledger.HandleBalances)
			r.Get("/{user}/balances/{avs}", cfg.Ledger.HandleBalanceOf)
			r.Get("/{user}/risk-report", cfg.RiskReport.HandleReport)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
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
