// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package api provides HTTP routing and handlers using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/feedrank/internal/config"
)

// Router assembles the HTTP surface of the service.
type Router struct {
	handler    *Handler
	middleware *ChiMiddleware
}

// NewRouter creates a router around the given handler set.
func NewRouter(handler *Handler, apiCfg *config.APIConfig) *Router {
	return &Router{
		handler:    handler,
		middleware: NewChiMiddleware(apiCfg),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS()) // global so OPTIONS preflight is handled

	// Health endpoints get permissive rate limiting so monitoring can
	// poll them freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())

		r.With(Metrics("for_you")).Get("/feed/for-you", router.handler.ForYouFeed)
		r.With(Metrics("following")).Get("/feed/following", router.handler.FollowingFeed)
		r.With(Metrics("trending")).Get("/trending/projects", router.handler.TrendingProjects)
		r.With(Metrics("suggested_users")).Get("/users/suggested", router.handler.SuggestedUsers)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
