// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/callboard/internal/middleware"
)

// Authenticator is the auth middleware the router needs. *auth.Middleware
// implements it.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
	RequireCronSecret(next http.Handler) http.Handler
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	auth          Authenticator
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, auth Authenticator, chiMiddleware *ChiMiddleware) *Router {
	return &Router{handler: handler, auth: auth, chiMiddleware: chiMiddleware}
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's r.Use.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi builds the HTTP handler for all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger())
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.With(mw.RateLimit(RateLimitHealth)).Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Scheduler endpoints authenticate with the cron secret, not a session.
		r.Route("/cron/call-history", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitSync))
			r.Get("/", h.CronCallHistoryStatus)
			r.With(router.auth.RequireCronSecret).Post("/", h.CronCallHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.auth.Authenticate)

			r.Route("/analytics", func(r chi.Router) {
				r.Use(mw.RateLimit(RateLimitAnalytics))
				r.Get("/", h.AnalyticsRecent)
				r.Post("/", h.AnalyticsQuery)
			})

			r.Route("/assistants", func(r chi.Router) {
				r.With(mw.RateLimit(RateLimitAPI)).Get("/", h.ListAssistants)
				r.With(mw.RateLimit(RateLimitWrite)).Post("/", h.CreateAssistant)
				r.With(mw.RateLimit(RateLimitAPI)).Get("/{id}", h.GetAssistant)
				r.With(mw.RateLimit(RateLimitWrite)).Patch("/{id}", h.UpdateAssistant)
				r.With(mw.RateLimit(RateLimitWrite)).Delete("/{id}", h.DeleteAssistant)
			})

			r.Route("/call-history", func(r chi.Router) {
				r.With(mw.RateLimit(RateLimitAPI)).Get("/", h.ListCallHistory)
				r.With(mw.RateLimit(RateLimitSync)).Post("/", h.SyncCallHistory)
			})
		})
	})

	return r
}
