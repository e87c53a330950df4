// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"net/http"
	"net/url"

	"github.com/cinemood/cinemood/internal/logging"
)

type loginRequest struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// Login validates credentials against the Jellyfin server and stores
// them encrypted for unattended re-authentication. The password never
// appears in any response or log line.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := url.Parse(req.ServerURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		respondError(w, http.StatusBadRequest, "server_url must be an http(s) URL")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.auth.StoreCredentials(r.Context(), req.ServerURL, req.Username, req.Password); err != nil {
		logging.Warn().Err(err).Str("server_url", req.ServerURL).Msg("Login failed")
		respondError(w, http.StatusUnauthorized, "authentication with the media server failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// ServerStatus reports whether the Jellyfin connection is configured
// and reachable.
func (h *Handler) ServerStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"configured": h.client.Configured()}
	if h.client.Configured() {
		status["reachable"] = h.client.Ping(r.Context()) == nil
	}
	respondJSON(w, http.StatusOK, status)
}
