// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/genoscope/internal/auth"
	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/metrics"
	"github.com/tomtom215/genoscope/internal/middleware"
)

// NewRouter wires all routes and middleware. jwtManager is nil in auth_mode
// "none", which leaves the admin routes open.
func NewRouter(handler *Handler, cfg *config.Config, jwtManager *auth.JWTManager) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := noopMiddleware
	if !cfg.Security.RateLimitDisabled {
		reqs, window := cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow
		if reqs <= 0 {
			reqs = 300
		}
		if window <= 0 {
			window = time.Minute
		}
		rateLimit = httprate.Limit(reqs, window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
				respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"Too many requests", nil)
			}))
	}

	// Health endpoints skip rate limiting so monitors are never throttled
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", handler.Health)
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/login", handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/candidates", handler.Candidates)
		r.Get("/genes/{gene}", handler.GeneDetail)
		r.Get("/stats", handler.Stats)
		r.Post("/predict", handler.Predict)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireToken(jwtManager))
			r.Post("/reload", handler.Reload)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func noopMiddleware(next http.Handler) http.Handler { return next }
