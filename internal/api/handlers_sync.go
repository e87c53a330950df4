// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/sync"
)

// TriggerSync starts a full library sync in the background. Exactly one
// sync runs at a time; a trigger during an active run is rejected with
// 409 rather than queued.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.manager.Status().IsRunning {
		respondError(w, http.StatusConflict, "sync already running")
		return
	}

	go func() {
		// Detached from the request lifecycle; the sync outlives it.
		result, err := h.manager.RunFullSync(context.Background())
		if err != nil {
			if !errors.Is(err, sync.ErrSyncRunning) {
				logging.Error().Err(err).Msg("Triggered sync failed")
			}
			return
		}
		logging.Info().
			Int("found", result.Found).
			Int("updated", result.Updated).
			Int("deleted", result.Deleted).
			Msg("Triggered sync finished")
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// SyncStatus reports whether a sync is running plus the outcome of the
// most recent run.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Status())
}

type importRequest struct {
	Title string `json:"title"`
}

// ImportMovie fetches a single movie from the remote library by exact
// title and adds it to the catalog without running a full sync.
func (h *Handler) ImportMovie(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	movie, err := h.manager.ImportByTitle(r.Context(), req.Title)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no movie with that title in the remote library")
			return
		}
		logging.Error().Err(err).Str("title", req.Title).Msg("Import by title failed")
		respondError(w, http.StatusBadGateway, "import failed")
		return
	}

	respondJSON(w, http.StatusCreated, movie)
}
