// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package models defines the domain types shared between the database,
// sync, realtime and API layers.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Movie is the local replica of a Jellyfin movie item.
//
// JellyfinID is the remote catalog's stable identifier and the sole join
// key between local and remote state during sync. All descriptive fields
// are authoritative on the remote side and fully overwritten on every
// sync pass; only the tag associations are locally owned.
type Movie struct {
	ID            string   `json:"id"`         // Surrogate UUID, assigned locally
	JellyfinID    string   `json:"jellyfinId"` // Remote item ID, unique
	Title         string   `json:"title"`
	OriginalTitle string   `json:"originalTitle,omitempty"`
	Year          *int     `json:"year,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	RuntimeMins   *int     `json:"runtimeMins,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Director      string   `json:"director,omitempty"`
	Cast          []string `json:"cast,omitempty"`

	// Image URLs resolved against the remote item's image tags. A nil
	// URL means the remote item has no image of that type; URLs are
	// never guessed.
	PosterURL   *string `json:"posterUrl,omitempty"`
	BackdropURL *string `json:"backdropUrl,omitempty"`
	LogoURL     *string `json:"logoUrl,omitempty"`

	// Metadata is the opaque snapshot of the remote item's full payload,
	// kept so derived fields (watched state, playback position) can be
	// recomputed without a second remote call.
	Metadata json.RawMessage `json:"-"`

	Tags []MovieTag `json:"tags,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tag is one entry of the mood/tag taxonomy layered on top of the
// replicated catalog. UsageCount is derived: it is recomputed from the
// association table after every full sync, never adjusted ad hoc.
type Tag struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"` // Human-assigned, unique
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UsageCount  int    `json:"usageCount"`
}

// MovieTag is one movie-to-tag association. Manual distinguishes
// human-applied tags from automatically suggested ones.
type MovieTag struct {
	TagID  int64  `json:"tagId"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Manual bool   `json:"manual"`
}
