// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package metrics defines the Prometheus instrumentation for the sync
// engine: full-sync outcomes, realtime reconciliation activity and the
// circuit breaker around the Jellyfin API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Full-sync metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_sync_runs_total",
			Help: "Total number of full-sync runs by result",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	SyncItemsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_sync_items_upserted_total",
			Help: "Total number of movies created or updated by full syncs",
		},
	)

	SyncItemsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_sync_items_deleted_total",
			Help: "Total number of orphaned movies deleted by full syncs",
		},
	)

	SyncItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_sync_item_errors_total",
			Help: "Total number of recoverable per-item errors during full syncs",
		},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinemood_sync_duration_seconds",
			Help:    "Duration of completed full-sync runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// Realtime reconciler metrics
	RealtimeConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinemood_realtime_connected",
			Help: "Whether the Jellyfin websocket is currently connected (1/0)",
		},
	)

	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_realtime_reconnects_total",
			Help: "Total number of websocket reconnect attempts",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_realtime_events_total",
			Help: "Total number of realtime change events applied",
		},
		[]string{"kind"}, // "upserted", "removed", "skipped"
	)

	RealtimeBatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_realtime_batch_failures_total",
			Help: "Total number of realtime batch fetches that were skipped after failure",
		},
	)

	// Circuit breaker metrics (Jellyfin API)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinemood_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)
)
