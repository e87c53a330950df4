// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package supervisor assembles the suture v4 supervision tree that
// keeps the long-running services alive: the HTTP server, the realtime
// reconciler and the sync scheduler. A crash in any one of them is
// restarted with backoff without taking down the others.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds restart behavior for the supervision tree.
type TreeConfig struct {
	// FailureThreshold is the failure score that triggers backoff.
	FailureThreshold float64
	// FailureDecay is the half-life of the failure score in seconds.
	FailureDecay float64
	// FailureBackoff is how long the supervisor pauses once the
	// threshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds graceful shutdown of each service.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig mirrors suture's own production defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor plus its service handles.
type Tree struct {
	root *suture.Supervisor
}

// NewTree builds the root supervisor with sutureslog event logging.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultTreeConfig()
	}

	handler := &sutureslog.Handler{Logger: logger}
	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	return &Tree{root: suture.New("cinemood", spec)}
}

// Add registers a service with the root supervisor.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve runs the tree until ctx is canceled; all services are shut down
// before it returns.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}
