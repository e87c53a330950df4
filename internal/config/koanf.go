// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file search order; the first file
// found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinemood/config.yaml",
	"/etc/cinemood/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CINEMOOD_CONFIG"

// envPrefix namespaces all configuration environment variables.
const envPrefix = "CINEMOOD_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8196,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:    "/data/cinemood.db",
			KeyPath: "/data/cinemood.key",
		},
		Jellyfin: JellyfinConfig{},
		Sync: SyncConfig{
			// Nightly full sync as the correctness backstop for missed
			// realtime notifications.
			Schedule:     "0 4 * * *",
			RunOnStartup: false,
		},
		Realtime: RealtimeConfig{
			Enabled:             true,
			BackoffBase:         time.Second,
			BackoffMax:          32 * time.Second,
			KeepAliveInterval:   30 * time.Second,
			ConfigRetryInterval: 10 * time.Second,
			BatchSize:           50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// and CINEMOOD_* environment variables, in ascending priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings resolves variables whose koanf path contains an
// underscore, which the generic section_key split cannot express.
var envMappings = map[string]string{
	"jellyfin_user_id":               "jellyfin.user_id",
	"server_cors_origins":            "server.cors_origins",
	"server_rate_limit_reqs":         "server.rate_limit_reqs",
	"server_rate_limit_window":       "server.rate_limit_window",
	"database_key_path":              "database.key_path",
	"sync_run_on_startup":            "sync.run_on_startup",
	"realtime_backoff_base":          "realtime.backoff_base",
	"realtime_backoff_max":           "realtime.backoff_max",
	"realtime_keepalive_interval":    "realtime.keepalive_interval",
	"realtime_config_retry_interval": "realtime.config_retry_interval",
	"realtime_batch_size":            "realtime.batch_size",
}

// envTransform maps CINEMOOD_SECTION_KEY to section.key.
//
//	CINEMOOD_JELLYFIN_URL          -> jellyfin.url
//	CINEMOOD_REALTIME_BACKOFF_MAX  -> realtime.backoff_max
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return strings.Replace(key, "_", ".", 1)
}
