// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package database implements the local catalog store: the SQLite
// persistence of movies, the tag taxonomy, the movie-tag association and
// the settings key/value table used as the credential store.
//
// The write primitives UpsertMovieFromRemote and DeleteMovieByJellyfinID
// are the single shared path used by both the full-sync coordinator and
// the realtime reconciler, so both converge to identical row state. Each
// primitive is independently atomic (single statement or single-row
// transaction); writers touching different jellyfin_ids do not block
// each other beyond SQLite's own write serialization.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("database: not found")

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path and
// applies pending migrations.
//
// foreign_keys and busy_timeout are per-connection pragmas in SQLite, so
// they are carried in the DSN: database/sql pools connections, and a
// pragma issued with Exec would only reach whichever connection the pool
// happened to hand out, leaving cascade deletes unenforced on the rest.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path of the database file.
func (s *Store) Path() string {
	return s.path
}
