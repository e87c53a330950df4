// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package database

import (
	"context"
	"fmt"
)

type migration struct {
	version string
	sql     string
}

// migrations are applied in order inside one transaction each run;
// applied versions are recorded in schema_migrations.
var migrations = []migration{
	{
		version: "0001_catalog",
		sql: `
CREATE TABLE IF NOT EXISTS movies (
    id            TEXT PRIMARY KEY,
    jellyfin_id   TEXT NOT NULL UNIQUE,
    title         TEXT NOT NULL,
    original_title TEXT NOT NULL DEFAULT '',
    year          INTEGER,
    overview      TEXT NOT NULL DEFAULT '',
    runtime_mins  INTEGER,
    genres        TEXT NOT NULL DEFAULT '[]',
    director      TEXT NOT NULL DEFAULT '',
    cast_list     TEXT NOT NULL DEFAULT '[]',
    poster_url    TEXT,
    backdrop_url  TEXT,
    logo_url      TEXT,
    metadata      TEXT NOT NULL DEFAULT '{}',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    slug        TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    usage_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS movie_tags (
    movie_id TEXT    NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
    tag_id   INTEGER NOT NULL REFERENCES tags(id)   ON DELETE CASCADE,
    manual   INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (movie_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_movie_tags_tag ON movie_tags(tag_id);
CREATE INDEX IF NOT EXISTS idx_movies_title   ON movies(title);
`,
	},
	{
		version: "0002_settings",
		sql: `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
}

func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
