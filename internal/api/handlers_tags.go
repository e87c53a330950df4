// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/logging"
)

// slugPattern constrains tag slugs to lowercase kebab-case.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ListTags returns the full mood taxonomy with usage counts.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list tags")
		respondError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

type createTagRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTag adds a mood tag to the taxonomy. Creating a slug that
// already exists returns the existing tag unchanged.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		respondError(w, http.StatusBadRequest, "slug must be lowercase kebab-case")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	tag, err := h.store.EnsureTag(r.Context(), req.Slug, req.Title, req.Description)
	if err != nil {
		logging.Error().Err(err).Str("slug", req.Slug).Msg("Failed to create tag")
		respondError(w, http.StatusInternalServerError, "failed to create tag")
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

type tagMovieRequest struct {
	Manual bool `json:"manual"`
}

// TagMovie attaches a mood tag to a catalog entry. Re-tagging an
// already-tagged movie updates only the manual flag.
func (h *Handler) TagMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	slug := chi.URLParam(r, "slug")

	req := tagMovieRequest{Manual: true}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	movie, err := h.store.GetMovieByID(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "movie not found")
			return
		}
		logging.Error().Err(err).Str("movie_id", movieID).Msg("Failed to load movie")
		respondError(w, http.StatusInternalServerError, "failed to tag movie")
		return
	}

	tag, err := h.store.GetTagBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "tag not found")
			return
		}
		logging.Error().Err(err).Str("slug", slug).Msg("Failed to load tag")
		respondError(w, http.StatusInternalServerError, "failed to tag movie")
		return
	}

	if err := h.store.SetMovieTag(r.Context(), movie.ID, tag.ID, req.Manual); err != nil {
		logging.Error().Err(err).Str("movie_id", movieID).Str("slug", slug).Msg("Failed to set movie tag")
		respondError(w, http.StatusInternalServerError, "failed to tag movie")
		return
	}
	if err := h.store.RecountTagUsage(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Usage recount after tagging failed")
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// UntagMovie detaches a mood tag from a catalog entry.
func (h *Handler) UntagMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	slug := chi.URLParam(r, "slug")

	movie, err := h.store.GetMovieByID(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "movie not found")
			return
		}
		logging.Error().Err(err).Str("movie_id", movieID).Msg("Failed to load movie")
		respondError(w, http.StatusInternalServerError, "failed to untag movie")
		return
	}

	tag, err := h.store.GetTagBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "tag not found")
			return
		}
		logging.Error().Err(err).Str("slug", slug).Msg("Failed to load tag")
		respondError(w, http.StatusInternalServerError, "failed to untag movie")
		return
	}

	if err := h.store.UnsetMovieTag(r.Context(), movie.ID, tag.ID); err != nil {
		logging.Error().Err(err).Str("movie_id", movieID).Str("slug", slug).Msg("Failed to unset movie tag")
		respondError(w, http.StatusInternalServerError, "failed to untag movie")
		return
	}
	if err := h.store.RecountTagUsage(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Usage recount after untagging failed")
	}

	respondJSON(w, http.StatusNoContent, nil)
}
