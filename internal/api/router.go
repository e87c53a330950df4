// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinemood/cinemood/internal/config"
)

// NewRouter assembles the HTTP routing table.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}

		r.Post("/auth/login", h.Login)
		r.Get("/server/status", h.ServerStatus)

		r.Post("/sync", h.TriggerSync)
		r.Get("/sync/status", h.SyncStatus)
		r.Post("/import", h.ImportMovie)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", h.ListMovies)
			r.Get("/resume", h.ResumeMovies)
			r.Get("/recent", h.RecentMovies)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetMovie)
				r.Get("/similar", h.SimilarMovies)
				r.Post("/played", h.SetPlayed)
				r.Put("/tags/{slug}", h.TagMovie)
				r.Delete("/tags/{slug}", h.UntagMovie)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.ListTags)
			r.Post("/", h.CreateTag)
		})
	})

	return r
}
