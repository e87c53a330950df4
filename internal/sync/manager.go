// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package sync implements the full-sync coordinator: the ground-truth
// reconciliation pass that fetches the entire remote movie library,
// diffs it against the local store, upserts changed rows, deletes
// orphans and recomputes derived tag-usage counts.
//
// Full syncs are single-flight: a run started while another is in
// flight fails immediately with ErrSyncRunning rather than queuing.
// Progress is published incrementally so status polls observe live
// counts mid-run.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/metrics"
	"github.com/cinemood/cinemood/internal/models"
)

// ErrSyncRunning is returned when a full sync is requested while one is
// already in flight. Callers poll status and retry; runs never queue.
var ErrSyncRunning = errors.New("sync already running")

// Manager is the full-sync coordinator.
type Manager struct {
	store   *database.Store
	client  jellyfin.API
	auth    *Authenticator
	applier *Applier

	// mu guards the run flag and the rolling statistics so concurrent
	// status queries are race-free.
	mu           gosync.RWMutex
	running      bool
	lastRunAt    time.Time
	lastDuration time.Duration
	stats        models.SyncResult
}

// NewManager creates a full-sync coordinator over the shared store,
// client, authenticator and applier.
func NewManager(store *database.Store, client jellyfin.API, auth *Authenticator, applier *Applier) *Manager {
	return &Manager{
		store:   store,
		client:  client,
		auth:    auth,
		applier: applier,
	}
}

// Status returns the most recent run state. Always succeeds; while a
// run is in flight the result carries the live counts so far.
func (m *Manager) Status() models.SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.Errors = append([]string(nil), m.stats.Errors...)
	return models.SyncStatus{
		IsRunning:    m.running,
		LastRunAt:    m.lastRunAt,
		LastDuration: m.lastDuration,
		LastResult:   &stats,
	}
}

// RunFullSync performs one complete reconciliation pass and returns the
// final statistics. Network and auth failures (after the single silent
// re-login retry) abort the run; per-item failures are recorded in the
// result's error list and never abort the rest of the run.
func (m *Manager) RunFullSync(ctx context.Context) (*models.SyncResult, error) {
	start := time.Now()

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		metrics.SyncRunsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrSyncRunning
	}
	m.running = true
	m.lastRunAt = start
	m.stats = models.SyncResult{Errors: []string{}}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.lastDuration = time.Since(start)
		m.mu.Unlock()
	}()

	result, err := m.runLocked(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		logging.Error().Err(err).Dur("duration", time.Since(start)).Msg("Full sync failed")
		return nil, err
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	logging.Info().
		Int("found", result.Found).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Int("errors", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Full sync completed")
	return result, nil
}

func (m *Manager) runLocked(ctx context.Context) (*models.SyncResult, error) {
	items, err := m.fetchLibrary(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.stats.Found = len(items)
	m.mu.Unlock()

	remote := make(map[string]struct{}, len(items))
	for i := range items {
		item := &items[i]
		remote[item.ID] = struct{}{}

		if err := m.applier.ApplyRemoteItem(ctx, item); err != nil {
			m.recordError(fmt.Sprintf("item %s (%s): %v", item.ID, item.Name, err))
			continue
		}
		m.recordUpdated()
	}

	if err := m.deleteOrphans(ctx, remote); err != nil {
		return nil, err
	}

	// Cascade deletes may have removed association rows; a full recount
	// restores counter consistency in one pass.
	if err := m.store.RecountTagUsage(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stats := m.stats
	stats.Errors = append([]string(nil), m.stats.Errors...)
	m.mu.RUnlock()
	return &stats, nil
}

// fetchLibrary retrieves the entire remote movie catalog. On auth
// expiry it attempts silent re-login exactly once and retries the fetch
// once; any other failure, or a second 401, aborts the run.
func (m *Manager) fetchLibrary(ctx context.Context) ([]jellyfin.Item, error) {
	items, _, err := m.client.GetMovies(ctx)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, jellyfin.ErrAuthExpired) {
		return nil, fmt.Errorf("fetch remote library: %w", err)
	}

	logging.Warn().Msg("Jellyfin token expired, attempting silent re-login")
	if authErr := m.auth.Reauthenticate(ctx); authErr != nil {
		return nil, fmt.Errorf("silent re-login failed: %w", authErr)
	}

	items, _, err = m.client.GetMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote library after re-login: %w", err)
	}
	return items, nil
}

// deleteOrphans removes local rows whose jellyfin_id is absent from the
// remote fetch result. Per-row failures are recorded and do not abort
// remaining deletions.
func (m *Manager) deleteOrphans(ctx context.Context, remote map[string]struct{}) error {
	localIDs, err := m.store.ListJellyfinIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local ids: %w", err)
	}

	for _, id := range localIDs {
		if _, ok := remote[id]; ok {
			continue
		}

		deleted, err := m.applier.RemoveByJellyfinID(ctx, id)
		if err != nil {
			m.recordError(fmt.Sprintf("delete orphan %s: %v", id, err))
			continue
		}
		if deleted {
			m.recordDeleted()
		}
	}
	return nil
}

// ImportByTitle applies the remote movie with an exact title match
// through the shared write path. This is the only title-based matching
// in the system and runs solely on explicit user request, never as part
// of normal sync.
func (m *Manager) ImportByTitle(ctx context.Context, title string) (*models.Movie, error) {
	items, _, err := m.client.GetMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote library: %w", err)
	}

	for i := range items {
		if items[i].Name != title {
			continue
		}
		if err := m.applier.ApplyRemoteItem(ctx, &items[i]); err != nil {
			return nil, err
		}
		return m.store.GetMovieByJellyfinID(ctx, items[i].ID)
	}
	return nil, fmt.Errorf("no remote movie titled %q: %w", title, database.ErrNotFound)
}

func (m *Manager) recordUpdated() {
	m.mu.Lock()
	m.stats.Updated++
	m.mu.Unlock()
	metrics.SyncItemsUpserted.Inc()
}

func (m *Manager) recordDeleted() {
	m.mu.Lock()
	m.stats.Deleted++
	m.mu.Unlock()
	metrics.SyncItemsDeleted.Inc()
}

func (m *Manager) recordError(msg string) {
	m.mu.Lock()
	m.stats.Errors = append(m.stats.Errors, msg)
	m.mu.Unlock()
	metrics.SyncItemErrors.Inc()
	logging.Warn().Str("detail", msg).Msg("Full sync item error")
}
