// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type movieListResponse struct {
	Movies []*models.Movie `json:"movies"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListMovies returns a page of the local catalog, optionally filtered
// by mood-tag slug.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	tagSlug := r.URL.Query().Get("tag")

	movies, err := h.store.ListMovies(r.Context(), tagSlug, limit, offset)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list movies")
		respondError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}

	for _, m := range movies {
		tags, err := h.store.MovieTags(r.Context(), m.ID)
		if err != nil {
			logging.Error().Err(err).Str("movie_id", m.ID).Msg("Failed to load movie tags")
			respondError(w, http.StatusInternalServerError, "failed to list movies")
			return
		}
		m.Tags = tags
	}

	total, err := h.store.CountMovies(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to count movies")
		respondError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}

	respondJSON(w, http.StatusOK, movieListResponse{
		Movies: movies,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetMovie returns one catalog entry with its tags.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movie, err := h.store.GetMovieByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "movie not found")
			return
		}
		logging.Error().Err(err).Str("movie_id", id).Msg("Failed to load movie")
		respondError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	tags, err := h.store.MovieTags(r.Context(), movie.ID)
	if err != nil {
		logging.Error().Err(err).Str("movie_id", id).Msg("Failed to load movie tags")
		respondError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}
	movie.Tags = tags

	respondJSON(w, http.StatusOK, movie)
}

// SimilarMovies proxies Jellyfin's similarity query for a catalog entry.
func (h *Handler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movie, err := h.store.GetMovieByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "movie not found")
			return
		}
		logging.Error().Err(err).Str("movie_id", id).Msg("Failed to load movie")
		respondError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	limit := queryInt(r, "limit", 12)
	items, err := h.client.GetSimilar(r.Context(), movie.JellyfinID, limit)
	if err != nil {
		logging.Warn().Err(err).Str("movie_id", id).Msg("Similar query failed")
		respondError(w, http.StatusBadGateway, "remote similarity query failed")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// ResumeMovies returns the remote continue-watching shelf.
func (h *Handler) ResumeMovies(w http.ResponseWriter, r *http.Request) {
	items, err := h.client.GetResume(r.Context(), queryInt(r, "limit", 12))
	if err != nil {
		logging.Warn().Err(err).Msg("Resume query failed")
		respondError(w, http.StatusBadGateway, "remote resume query failed")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// RecentMovies returns the remote recently-added shelf.
func (h *Handler) RecentMovies(w http.ResponseWriter, r *http.Request) {
	items, err := h.client.GetRecentlyAdded(r.Context(), queryInt(r, "limit", 12))
	if err != nil {
		logging.Warn().Err(err).Msg("Recently-added query failed")
		respondError(w, http.StatusBadGateway, "remote recently-added query failed")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type playedRequest struct {
	Played bool `json:"played"`
}

// SetPlayed reports watched state for a catalog entry back to Jellyfin.
func (h *Handler) SetPlayed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req playedRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	movie, err := h.store.GetMovieByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "movie not found")
			return
		}
		logging.Error().Err(err).Str("movie_id", id).Msg("Failed to load movie")
		respondError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	if err := h.client.SetPlayed(r.Context(), movie.JellyfinID, req.Played); err != nil {
		logging.Warn().Err(err).Str("movie_id", id).Msg("Played-state update failed")
		respondError(w, http.StatusBadGateway, "remote played-state update failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"played": req.Played})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
