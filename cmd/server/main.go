// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package main is the entry point for the Cinemood server.
//
// Cinemood keeps a local, queryable replica of a Jellyfin movie library
// and layers a mood-tag taxonomy on top of it. The replica is kept
// consistent two ways: scheduled full syncs that reconcile the whole
// catalog (including orphan removal), and a realtime websocket
// reconciler that applies incremental library changes between syncs.
//
// Startup order:
//
//  1. Configuration: defaults, optional YAML file, CINEMOOD_* env vars
//  2. Logging: zerolog, JSON or console format
//  3. Database: SQLite catalog store with migrations and tag seeding
//  4. Secrets: credential-encryption key file (created on first boot)
//  5. Jellyfin client: circuit-breaker wrapped, hydrated from stored
//     credentials or bootstrap config
//  6. Supervision tree: HTTP API, realtime reconciler, sync scheduler
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinemood/cinemood/internal/api"
	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/realtime"
	"github.com/cinemood/cinemood/internal/scheduler"
	"github.com/cinemood/cinemood/internal/secrets"
	"github.com/cinemood/cinemood/internal/supervisor"
	syncpkg "github.com/cinemood/cinemood/internal/sync"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("db", cfg.Database.Path).Msg("Cinemood starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Database close failed")
		}
	}()

	if err := store.SeedDefaultTags(ctx); err != nil {
		return err
	}

	cipher, err := secrets.Open(cfg.Database.KeyPath)
	if err != nil {
		return err
	}

	client := jellyfin.NewBreakerClient("", "", "")
	auth := syncpkg.NewAuthenticator(store, cipher, client)

	if err := connectJellyfin(ctx, cfg, client, auth); err != nil {
		return err
	}

	applier := syncpkg.NewApplier(store, client)
	manager := syncpkg.NewManager(store, client, auth, applier)

	handler := api.NewHandler(store, client, manager, auth)
	server := api.NewServer(cfg.Server, api.NewRouter(handler, cfg.Server))

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(server)
	tree.Add(scheduler.New(manager, cfg.Sync.Schedule))

	if cfg.Realtime.Enabled {
		tree.Add(realtime.NewReconciler(client, applier, realtime.Options{
			BackoffBase:         cfg.Realtime.BackoffBase,
			BackoffMax:          cfg.Realtime.BackoffMax,
			KeepAliveInterval:   cfg.Realtime.KeepAliveInterval,
			ConfigRetryInterval: cfg.Realtime.ConfigRetryInterval,
			BatchSize:           cfg.Realtime.BatchSize,
			ReadTimeout:         3 * cfg.Realtime.KeepAliveInterval,
		}))
	}

	if cfg.Sync.RunOnStartup {
		go func() {
			if _, err := manager.RunFullSync(ctx); err != nil && !errors.Is(err, syncpkg.ErrSyncRunning) {
				logging.Error().Err(err).Msg("Startup sync failed")
			}
		}()
	}

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info().Msg("Cinemood stopped")
		return nil
	}
	return err
}

// connectJellyfin establishes the remote connection at startup: stored
// credentials win; otherwise bootstrap values from the configuration
// seed a fresh install. An unconfigured client is fine, the realtime
// reconciler and sync manager wait until a login happens via the API.
func connectJellyfin(ctx context.Context, cfg *config.Config, client jellyfin.API, auth *syncpkg.Authenticator) error {
	if err := auth.Hydrate(ctx); err != nil {
		return err
	}
	if client.Configured() {
		logging.Info().Msg("Jellyfin connection restored from stored credentials")
		return nil
	}

	switch {
	case cfg.Jellyfin.URL != "" && cfg.Jellyfin.Username != "" && cfg.Jellyfin.Password != "":
		if err := auth.StoreCredentials(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.Username, cfg.Jellyfin.Password); err != nil {
			// The server may simply be down right now; stay up and let a
			// later login or retry succeed.
			logging.Warn().Err(err).Msg("Bootstrap login failed, continuing unconfigured")
			return nil
		}
		logging.Info().Msg("Jellyfin connection bootstrapped from configuration")

	case cfg.Jellyfin.URL != "" && cfg.Jellyfin.Token != "" && cfg.Jellyfin.UserID != "":
		client.Reconfigure(cfg.Jellyfin.URL, cfg.Jellyfin.Token, cfg.Jellyfin.UserID)
		logging.Info().Msg("Jellyfin connection configured from static token")

	default:
		logging.Info().Msg("No Jellyfin credentials yet, waiting for login via API")
	}
	return nil
}
