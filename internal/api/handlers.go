// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package api exposes the HTTP surface: sync triggers and status,
// catalog browsing, mood-tag management and Jellyfin passthrough
// queries, routed with chi.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/sync"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	store   *database.Store
	client  jellyfin.API
	manager *sync.Manager
	auth    *sync.Authenticator
}

// NewHandler wires the endpoint dependencies.
func NewHandler(store *database.Store, client jellyfin.API, manager *sync.Manager, auth *sync.Authenticator) *Handler {
	return &Handler{store: store, client: client, manager: manager, auth: auth}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeBody parses a JSON request body into dst, rejecting unknown
// fields so client typos fail loudly.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
