// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cinemood/cinemood/internal/models"
)

// EnsureTag creates a tag on first use and returns it. An existing slug
// keeps its title and description; last write does not win here because
// tag identity is human-curated.
func (s *Store) EnsureTag(ctx context.Context, slug, title, description string) (*models.Tag, error) {
	if slug == "" {
		return nil, errors.New("ensure tag: empty slug")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (slug, title, description) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`,
		slug, title, description)
	if err != nil {
		return nil, fmt.Errorf("ensure tag %s: %w", slug, err)
	}

	return s.GetTagBySlug(ctx, slug)
}

// GetTagBySlug fetches one tag by slug.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRowContext(ctx,
		"SELECT id, slug, title, description, usage_count FROM tags WHERE slug = ?", slug).
		Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", slug, err)
	}
	return &t, nil
}

// ListTags returns the whole taxonomy ordered by slug.
func (s *Store) ListTags(ctx context.Context) ([]*models.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, slug, title, description, usage_count FROM tags ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// SetMovieTag applies a tag to a movie. Re-applying an existing
// association updates its manual flag.
func (s *Store) SetMovieTag(ctx context.Context, movieID string, tagID int64, manual bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movie_tags (movie_id, tag_id, manual) VALUES (?, ?, ?)
		ON CONFLICT(movie_id, tag_id) DO UPDATE SET manual = excluded.manual`,
		movieID, tagID, boolToInt(manual))
	if err != nil {
		return fmt.Errorf("set tag %d on movie %s: %w", tagID, movieID, err)
	}
	return nil
}

// UnsetMovieTag removes a tag from a movie.
func (s *Store) UnsetMovieTag(ctx context.Context, movieID string, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM movie_tags WHERE movie_id = ? AND tag_id = ?", movieID, tagID)
	if err != nil {
		return fmt.Errorf("unset tag %d on movie %s: %w", tagID, movieID, err)
	}
	return nil
}

// MovieTags returns the tags applied to one movie.
func (s *Store) MovieTags(ctx context.Context, movieID string) ([]models.MovieTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.slug, t.title, mt.manual
		FROM movie_tags mt JOIN tags t ON t.id = mt.tag_id
		WHERE mt.movie_id = ? ORDER BY t.slug`, movieID)
	if err != nil {
		return nil, fmt.Errorf("movie tags for %s: %w", movieID, err)
	}
	defer func() { _ = rows.Close() }()

	var tags []models.MovieTag
	for rows.Next() {
		var (
			mt     models.MovieTag
			manual int
		)
		if err := rows.Scan(&mt.TagID, &mt.Slug, &mt.Title, &manual); err != nil {
			return nil, fmt.Errorf("scan movie tag: %w", err)
		}
		mt.Manual = manual != 0
		tags = append(tags, mt)
	}
	return tags, rows.Err()
}

// RecountTagUsage recomputes every tag's usage counter from the
// association table in one statement. A full recount rather than
// incremental updates keeps the counters correct after cascade deletes
// remove association rows out of band.
func (s *Store) RecountTagUsage(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tags SET usage_count = (
			SELECT COUNT(1) FROM movie_tags WHERE movie_tags.tag_id = tags.id
		)`)
	if err != nil {
		return fmt.Errorf("recount tag usage: %w", err)
	}
	return nil
}

// SeedTags inserts the fixed mood taxonomy on first boot. Existing slugs
// are left untouched so user edits survive restarts.
func (s *Store) SeedTags(ctx context.Context, tags []models.Tag) error {
	for i := range tags {
		t := &tags[i]
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO tags (slug, title, description) VALUES (?, ?, ?)
			ON CONFLICT(slug) DO NOTHING`,
			t.Slug, t.Title, t.Description); err != nil {
			return fmt.Errorf("seed tag %s: %w", t.Slug, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
