// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package realtime

import "time"

// backoff produces the delay between consecutive reconnect attempts:
// exponential doubling from base up to max. Delays are monotonically
// non-decreasing until Reset, which only happens after a connection
// actually reaches the connected state.
type backoff struct {
	base time.Duration
	max  time.Duration
	next time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, next: base}
}

// Next returns the delay to sleep before the upcoming attempt and
// advances the schedule.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset returns the schedule to the base delay.
func (b *backoff) Reset() {
	b.next = b.base
}
