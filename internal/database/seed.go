// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package database

import (
	"context"

	"github.com/cinemood/cinemood/internal/models"
)

// DefaultMoodTags is the fixed taxonomy pre-seeded at first boot. Slugs
// are stable identifiers; titles and descriptions are starting points
// the user may edit.
var DefaultMoodTags = []models.Tag{
	{Slug: "feel-good", Title: "Feel-Good", Description: "Leaves you lighter than it found you"},
	{Slug: "tense", Title: "Tense", Description: "Edge-of-the-seat suspense throughout"},
	{Slug: "melancholic", Title: "Melancholic", Description: "Beautiful sadness, lingering afterthoughts"},
	{Slug: "cozy", Title: "Cozy", Description: "Low stakes, warm light, blanket weather"},
	{Slug: "mind-bending", Title: "Mind-Bending", Description: "Demands a second viewing to untangle"},
	{Slug: "heartwarming", Title: "Heartwarming", Description: "Earnest and affirming"},
	{Slug: "dark", Title: "Dark", Description: "Bleak themes, morally gray characters"},
	{Slug: "whimsical", Title: "Whimsical", Description: "Playful, stylized, lightly surreal"},
	{Slug: "epic", Title: "Epic", Description: "Big canvas, long runtime, high stakes"},
	{Slug: "slow-burn", Title: "Slow Burn", Description: "Patient build toward a payoff"},
	{Slug: "nostalgic", Title: "Nostalgic", Description: "Evokes another era, yours or the film's"},
	{Slug: "gritty", Title: "Gritty", Description: "Unvarnished, grounded, rough around the edges"},
}

// SeedDefaultTags inserts the fixed mood taxonomy, skipping slugs that
// already exist.
func (s *Store) SeedDefaultTags(ctx context.Context) error {
	return s.SeedTags(ctx, DefaultMoodTags)
}
