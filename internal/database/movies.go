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
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cinemood/cinemood/internal/models"
)

const timeLayout = time.RFC3339Nano

const movieColumns = `id, jellyfin_id, title, original_title, year, overview, runtime_mins,
	genres, director, cast_list, poster_url, backdrop_url, logo_url, metadata, created_at, updated_at`

// UpsertMovieFromRemote writes one remote movie payload into the local
// store, keyed by jellyfin_id. All descriptive fields are overwritten;
// the surrogate id, created_at and tag associations of an existing row
// survive. This is the single write path shared by the full-sync
// coordinator and the realtime reconciler.
func (s *Store) UpsertMovieFromRemote(ctx context.Context, m *models.Movie) error {
	if m.JellyfinID == "" {
		return errors.New("upsert movie: empty jellyfin_id")
	}

	genres, err := marshalList(m.Genres)
	if err != nil {
		return fmt.Errorf("upsert movie %s: encode genres: %w", m.JellyfinID, err)
	}
	castList, err := marshalList(m.Cast)
	if err != nil {
		return fmt.Errorf("upsert movie %s: encode cast: %w", m.JellyfinID, err)
	}

	metadata := "{}"
	if len(m.Metadata) > 0 {
		metadata = string(m.Metadata)
	}

	now := time.Now().UTC().Format(timeLayout)
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO movies (
			id, jellyfin_id, title, original_title, year, overview, runtime_mins,
			genres, director, cast_list, poster_url, backdrop_url, logo_url,
			metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(jellyfin_id) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			year = excluded.year,
			overview = excluded.overview,
			runtime_mins = excluded.runtime_mins,
			genres = excluded.genres,
			director = excluded.director,
			cast_list = excluded.cast_list,
			poster_url = excluded.poster_url,
			backdrop_url = excluded.backdrop_url,
			logo_url = excluded.logo_url,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		id, m.JellyfinID, m.Title, m.OriginalTitle, m.Year, m.Overview, m.RuntimeMins,
		genres, m.Director, castList, m.PosterURL, m.BackdropURL, m.LogoURL,
		metadata, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert movie %s: %w", m.JellyfinID, err)
	}
	return nil
}

// DeleteMovieByJellyfinID removes the local row for a remote identifier.
// Tag associations cascade. Returns true when a row was deleted.
func (s *Store) DeleteMovieByJellyfinID(ctx context.Context, jellyfinID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM movies WHERE jellyfin_id = ?", jellyfinID)
	if err != nil {
		return false, fmt.Errorf("delete movie %s: %w", jellyfinID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete movie %s: rows affected: %w", jellyfinID, err)
	}
	return n > 0, nil
}

// ListJellyfinIDs returns the remote identifier of every local movie,
// used by the full-sync coordinator's orphan diff.
func (s *Store) ListJellyfinIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT jellyfin_id FROM movies")
	if err != nil {
		return nil, fmt.Errorf("list jellyfin ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan jellyfin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMovieByJellyfinID fetches one movie by its remote identifier.
func (s *Store) GetMovieByJellyfinID(ctx context.Context, jellyfinID string) (*models.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE jellyfin_id = ?", jellyfinID)
	return scanMovie(row)
}

// GetMovieByID fetches one movie by its surrogate id.
func (s *Store) GetMovieByID(ctx context.Context, id string) (*models.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE id = ?", id)
	return scanMovie(row)
}

// FindMovieByTitle fetches one movie by exact title match. Reserved for
// the explicitly user-triggered import flow; normal sync never matches
// on anything but jellyfin_id.
func (s *Store) FindMovieByTitle(ctx context.Context, title string) (*models.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE title = ? ORDER BY created_at LIMIT 1", title)
	return scanMovie(row)
}

// ListMovies returns a page of movies ordered by title. When tagSlug is
// non-empty only movies carrying that tag are returned.
func (s *Store) ListMovies(ctx context.Context, tagSlug string, limit, offset int) ([]*models.Movie, error) {
	query := "SELECT " + movieColumns + " FROM movies"
	args := []any{}
	if tagSlug != "" {
		query += ` WHERE id IN (
			SELECT mt.movie_id FROM movie_tags mt
			JOIN tags t ON t.id = mt.tag_id WHERE t.slug = ?)`
		args = append(args, tagSlug)
	}
	query += " ORDER BY title LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// CountMovies returns the number of movies in the local store.
func (s *Store) CountMovies(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM movies").Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

// scanTarget is satisfied by both *sql.Row and *sql.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanMovie(row scanTarget) (*models.Movie, error) {
	var (
		m                  models.Movie
		genres, castList   string
		metadata           string
		created, updated   string
		poster, back, logo sql.NullString
		year, runtime      sql.NullInt64
	)

	err := row.Scan(
		&m.ID, &m.JellyfinID, &m.Title, &m.OriginalTitle, &year, &m.Overview, &runtime,
		&genres, &m.Director, &castList, &poster, &back, &logo, &metadata, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan movie: %w", err)
	}

	if year.Valid {
		y := int(year.Int64)
		m.Year = &y
	}
	if runtime.Valid {
		r := int(runtime.Int64)
		m.RuntimeMins = &r
	}
	if poster.Valid {
		m.PosterURL = &poster.String
	}
	if back.Valid {
		m.BackdropURL = &back.String
	}
	if logo.Valid {
		m.LogoURL = &logo.String
	}

	if err := json.Unmarshal([]byte(genres), &m.Genres); err != nil {
		return nil, fmt.Errorf("decode genres for %s: %w", m.JellyfinID, err)
	}
	if err := json.Unmarshal([]byte(castList), &m.Cast); err != nil {
		return nil, fmt.Errorf("decode cast for %s: %w", m.JellyfinID, err)
	}
	m.Metadata = json.RawMessage(metadata)

	if m.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", m.JellyfinID, err)
	}
	if m.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", m.JellyfinID, err)
	}

	return &m, nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
