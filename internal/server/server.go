// Package server implements the HTTP transport layer for the TipsterHub data service.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/winmix/tipsterhub/internal/app"
	"github.com/winmix/tipsterhub/internal/circuitbreaker"
	"github.com/winmix/tipsterhub/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Catalog        *app.Catalog
	AdminToken     string                   // empty = admin API unguarded
	ReadyCheck     ReadyChecker             // nil = always ready (for tests)
	Metrics        *telemetry.Metrics       // nil = no request metrics
	MetricsHandler http.Handler             // nil = no /metrics endpoint
	Breakers       *circuitbreaker.Registry // nil = edge functions disabled
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(s.logging)

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Dashboard read API, served through the query cache
	r.Route("/v1", func(r chi.Router) {
		r.Get("/teams", s.handleListTeams)
		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Get("/predictions", s.handleListPredictions)
		r.Get("/models", s.handleListModels)
		r.Get("/models/{id}", s.handleGetModel)
		r.Get("/models/{id}/performance", s.handleModelPerformance)
	})

	// Admin API: writes and cache management
	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(s.adminAuth)

		r.Post("/teams", s.handleCreateTeam)
		r.Post("/matches", s.handleCreateMatch)
		r.Put("/matches/{id}/result", s.handleUpdateMatchResult)
		r.Post("/predictions", s.handleCreatePrediction)
		r.Post("/models", s.handleCreateModel)
		r.Patch("/models/{id}", s.handleUpdateModel)
		r.Post("/models/{id}/promote", s.handlePromoteModel)
		r.Delete("/models/{id}", s.handleDeleteModel)

		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheInvalidate)

		r.Get("/edge/breakers", s.handleEdgeBreakers)
	})

	return r
}

type server struct {
	deps Deps
}
