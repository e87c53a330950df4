// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package scheduler runs periodic full library syncs on a cron
// schedule. Scheduled runs are the correctness backstop for realtime
// reconciliation, which can miss notifications across reconnects.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/thejerf/suture/v4"

	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/sync"
)

// Scheduler triggers full syncs on a fixed cron schedule.
type Scheduler struct {
	manager  *sync.Manager
	schedule string
	cron     *cron.Cron
}

// New creates a scheduler; schedule is a standard 5-field cron
// expression. An empty schedule disables periodic syncs.
func New(manager *sync.Manager, schedule string) *Scheduler {
	return &Scheduler{manager: manager, schedule: schedule}
}

// Serve registers the cron entry and runs until ctx is canceled,
// satisfying suture.Service. With an empty schedule it just blocks so
// the supervisor does not restart-loop.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.schedule == "" {
		logging.Info().Msg("Periodic sync disabled, no schedule configured")
		<-ctx.Done()
		return ctx.Err()
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		// A bad expression is a configuration error; restarting will not
		// fix it.
		logging.Error().Err(err).Str("schedule", s.schedule).Msg("Invalid sync schedule")
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, suture.ErrDoNotRestart)
	}
	s.cron = c

	logging.Info().Str("schedule", s.schedule).Msg("Periodic sync scheduled")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	// Let an in-flight scheduled sync finish before reporting stopped.
	<-stopCtx.Done()
	return ctx.Err()
}

// runOnce executes one scheduled sync. An already-running sync means
// the scheduled run is skipped, never queued.
func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.manager.RunFullSync(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncRunning) {
			logging.Info().Msg("Scheduled sync skipped, a sync is already running")
			return
		}
		logging.Error().Err(err).Msg("Scheduled sync failed")
		return
	}

	logging.Info().
		Int("found", result.Found).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Int("errors", len(result.Errors)).
		Msg("Scheduled sync finished")
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "scheduler.Scheduler" }
