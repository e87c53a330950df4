// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package jellyfin

import "github.com/goccy/go-json"

// API shapes for the subset of the Jellyfin REST and WebSocket APIs the
// application consumes. Field names follow the server's PascalCase JSON.
// API Reference: https://api.jellyfin.org/

// Item is a library item as returned by /Users/{userId}/Items.
type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	OriginalTitle  string            `json:"OriginalTitle,omitempty"`
	Type           string            `json:"Type"` // "Movie" is the only type synced
	Overview       string            `json:"Overview,omitempty"`
	ProductionYear *int              `json:"ProductionYear,omitempty"`
	RunTimeTicks   int64             `json:"RunTimeTicks,omitempty"` // 100ns units
	Genres         []string          `json:"Genres,omitempty"`
	People         []Person          `json:"People,omitempty"`
	ProviderIDs    map[string]string `json:"ProviderIds,omitempty"`

	// ImageTags maps image type ("Primary", "Logo", ...) to the tag
	// required to construct that image's URL. An absent type means the
	// server has no such image. Backdrops use their own tag list and
	// always reference index 0.
	ImageTags         map[string]string `json:"ImageTags,omitempty"`
	BackdropImageTags []string          `json:"BackdropImageTags,omitempty"`

	UserData *UserData `json:"UserData,omitempty"`
}

// Person is one cast or crew credit on an item.
type Person struct {
	Name string `json:"Name"`
	Type string `json:"Type"` // "Actor", "Director", "Writer", ...
	Role string `json:"Role,omitempty"`
}

// UserData carries the per-user playback state of an item.
type UserData struct {
	Played                bool    `json:"Played"`
	PlaybackPositionTicks int64   `json:"PlaybackPositionTicks"`
	PlayCount             int     `json:"PlayCount"`
	IsFavorite            bool    `json:"IsFavorite"`
	PlayedPercentage      float64 `json:"PlayedPercentage,omitempty"`
}

// ItemsResponse is the bulk listing envelope.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// AuthResult is the outcome of AuthenticateByName.
type AuthResult struct {
	AccessToken string   `json:"AccessToken"`
	User        AuthUser `json:"User"`
}

// AuthUser identifies the authenticated user.
type AuthUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// WSMessage is the tagged envelope of a websocket text frame. Data stays
// raw until the message type selects a concrete payload; unknown types
// are ignored for forward compatibility.
type WSMessage struct {
	MessageType string          `json:"MessageType"`
	MessageID   string          `json:"MessageId,omitempty"`
	Data        json.RawMessage `json:"Data,omitempty"`
}

// LibraryChanged is the payload of a "LibraryChanged" frame: three lists
// of remote item identifiers.
type LibraryChanged struct {
	ItemsAdded   []string `json:"ItemsAdded"`
	ItemsUpdated []string `json:"ItemsUpdated"`
	ItemsRemoved []string `json:"ItemsRemoved"`
}
