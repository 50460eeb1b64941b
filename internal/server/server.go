// Package server exposes the engine over HTTP as a JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/engine"
)

// Server serves the routing and allocation API.
type Server struct {
	cfg      config.ServerConfig
	eng      *engine.Engine
	log      *zap.Logger
	limiters *clientLimiters
}

func New(cfg config.ServerConfig, eng *engine.Engine) *Server {
	return &Server{
		cfg: cfg,
		eng: eng,
		log: zap.L().With(zap.String("component", "server")),
	}
}

// Handler builds the chi router with CORS and per-client rate limiting.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RateLimit > 0 {
		if s.limiters == nil {
			s.limiters = newClientLimiters(s.cfg.RateLimit, s.cfg.RateBurst)
		}
		r.Use(s.limiters.middleware())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/load", s.handleGraphLoad)
			r.Get("/nodes", s.handleGraphNodes)
			r.Get("/edges", s.handleGraphEdges)
			r.Get("/stats", s.handleGraphStats)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", s.handleScenarioList)
			r.Post("/activate", s.handleScenarioActivate)
			r.Post("/preset/{name}", s.handleScenarioPreset)
			r.Post("/archive/{id}/activate", s.handleScenarioReactivate)
			r.Delete("/current", s.handleScenarioClear)
		})

		r.Get("/damage-map", s.handleDamageMap)

		r.Post("/route", s.handleRoute)
		r.Get("/routes/compare", s.handleRoutesCompare)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleResources)
			r.Get("/{type}", s.handleResourcesByType)
			r.Post("/{id}/assign", s.handleResourceAssign)
		})
		r.Post("/allocate", s.handleAllocate)

		r.Get("/recommendations", s.handleRecommendations)
	})
	return r
}

// Close releases background resources held by the handler.
func (s *Server) Close() {
	if s.limiters != nil {
		s.limiters.stop()
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
