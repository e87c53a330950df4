// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package models

import "time"

// SyncResult is the outcome of one full-sync run.
//
// Updated counts both created and updated rows: the coordinator does not
// distinguish the two, both mean "the local row now matches the remote
// payload". Errors collects per-item failures that did not abort the run.
type SyncResult struct {
	Found   int      `json:"found"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
}

// SyncStatus is the read-only view of the coordinator's run state,
// served to status polls at any time, including mid-run. While a run is
// in flight LastResult carries the live counts accumulated so far.
type SyncStatus struct {
	IsRunning    bool          `json:"isRunning"`
	LastRunAt    time.Time     `json:"lastRunAt"`
	LastDuration time.Duration `json:"lastDurationNs"`
	LastResult   *SyncResult   `json:"lastResult,omitempty"`
}
