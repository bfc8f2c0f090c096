// Package api exposes the aggregated domain views over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leeaandrob/marketlens/internal/storage"
	"github.com/rs/zerolog/log"
)

// Server represents the API server.
type Server struct {
	router   *chi.Mux
	handlers *Handlers
	addr     string
	server   *http.Server
}

// NewServer creates a new API server.
func NewServer(store *storage.Store, addr string) *Server {
	handlers := NewHandlers(store)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/stats", handlers.GetStats)
		r.Get("/domains/{domain}", handlers.GetDomainView)
		r.Get("/headlines", handlers.GetHeadlines)
	})

	return &Server{
		router:   r,
		handlers: handlers,
		addr:     addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
