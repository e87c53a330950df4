// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package config provides layered configuration management: struct
// defaults, an optional YAML file, then environment variables, loaded
// with koanf and validated with go-playground/validator.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Jellyfin JellyfinConfig `koanf:"jellyfin"`
	Sync     SyncConfig     `koanf:"sync"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig configures the local catalog store.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
	// KeyPath is the location of the credential-encryption key file,
	// created with owner-only permissions on first use.
	KeyPath string `koanf:"key_path" validate:"required"`
}

// JellyfinConfig carries optional bootstrap connection parameters. Once
// a login has happened the credential store in the database is
// authoritative; these values only seed a fresh install.
type JellyfinConfig struct {
	URL      string `koanf:"url"`
	Token    string `koanf:"token"`
	UserID   string `koanf:"user_id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// SyncConfig configures the full-sync coordinator.
type SyncConfig struct {
	// Schedule is a cron expression for periodic full syncs; empty
	// disables scheduling (manual trigger only).
	Schedule     string `koanf:"schedule"`
	RunOnStartup bool   `koanf:"run_on_startup"`
}

// RealtimeConfig configures the websocket reconciler.
type RealtimeConfig struct {
	Enabled             bool          `koanf:"enabled"`
	BackoffBase         time.Duration `koanf:"backoff_base" validate:"gt=0"`
	BackoffMax          time.Duration `koanf:"backoff_max" validate:"gt=0"`
	KeepAliveInterval   time.Duration `koanf:"keepalive_interval" validate:"gt=0"`
	ConfigRetryInterval time.Duration `koanf:"config_retry_interval" validate:"gt=0"`
	BatchSize           int           `koanf:"batch_size" validate:"min=1"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks structural constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Jellyfin.URL != "" {
		parsed, err := url.Parse(c.Jellyfin.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("jellyfin.url must be an http(s) URL, got %q", c.Jellyfin.URL)
		}
	}

	if c.Realtime.BackoffMax < c.Realtime.BackoffBase {
		return fmt.Errorf("realtime.backoff_max (%s) must be >= realtime.backoff_base (%s)",
			c.Realtime.BackoffMax, c.Realtime.BackoffBase)
	}

	return nil
}
