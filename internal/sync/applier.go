// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/models"
)

// Applier is the single write path from remote payloads into the local
// store. Both the full-sync coordinator and the realtime reconciler go
// through it, so applying the same item produces identical row state
// regardless of which path delivered it.
type Applier struct {
	store  *database.Store
	client jellyfin.API
}

// NewApplier creates the shared apply/remove pair over a store and client.
func NewApplier(store *database.Store, client jellyfin.API) *Applier {
	return &Applier{store: store, client: client}
}

// ApplyRemoteItem maps one remote item to a local movie row and upserts
// it. All descriptive fields and the three image URLs are overwritten;
// an image type without a tag on the remote item yields a nil URL.
func (a *Applier) ApplyRemoteItem(ctx context.Context, item *jellyfin.Item) error {
	if item == nil || item.ID == "" {
		return errors.New("apply remote item: missing item id")
	}

	movie, err := a.movieFromItem(item)
	if err != nil {
		return err
	}
	return a.store.UpsertMovieFromRemote(ctx, movie)
}

// RemoveByJellyfinID deletes the local row for a remote identifier,
// cascading its tag associations. Returns true when a row existed.
func (a *Applier) RemoveByJellyfinID(ctx context.Context, jellyfinID string) (bool, error) {
	return a.store.DeleteMovieByJellyfinID(ctx, jellyfinID)
}

// movieFromItem maps a remote payload to the local movie shape.
func (a *Applier) movieFromItem(item *jellyfin.Item) (*models.Movie, error) {
	metadata, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("snapshot metadata for %s: %w", item.ID, err)
	}

	movie := &models.Movie{
		JellyfinID:    item.ID,
		Title:         item.Name,
		OriginalTitle: item.OriginalTitle,
		Year:          item.ProductionYear,
		Overview:      item.Overview,
		Genres:        item.Genres,
		Metadata:      metadata,
	}

	if item.RunTimeTicks > 0 {
		// Jellyfin reports runtime in 100ns ticks.
		mins := int(item.RunTimeTicks / 600_000_000)
		movie.RuntimeMins = &mins
	}

	for _, person := range item.People {
		switch person.Type {
		case "Director":
			if movie.Director == "" {
				movie.Director = person.Name
			}
		case "Actor":
			movie.Cast = append(movie.Cast, person.Name)
		}
	}

	movie.PosterURL, movie.BackdropURL, movie.LogoURL = a.client.ResolveImageURLs(item)

	return movie, nil
}
