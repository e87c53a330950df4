// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package jellyfin

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/metrics"
)

var _ API = (*BreakerClient)(nil)

// BreakerClient wraps Client with a circuit breaker so a down or slow
// Jellyfin server cannot pile up requests from the sync paths. Auth
// expiry is not counted as a breaker failure: it has its own recovery
// path (silent re-login) and must always reach the caller.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient creates a Jellyfin client guarded by a circuit
// breaker. The breaker opens after a 60% failure rate over at least 10
// requests, waits 2 minutes before probing recovery and allows 3
// requests in half-open state.
func NewBreakerClient(baseURL, token, userID string) *BreakerClient {
	client := NewClient(baseURL, token, userID)
	cbName := "jellyfin-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		IsSuccessful: func(err error) bool {
			// 401 means the token expired, not that the server is
			// unhealthy.
			return err == nil || errors.Is(err, ErrAuthExpired)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Jellyfin circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execute wraps one API call with circuit breaker protection.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Msg("Jellyfin request rejected by circuit breaker")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// GetMovies retrieves the entire movie library through the breaker.
func (b *BreakerClient) GetMovies(ctx context.Context) ([]Item, int, error) {
	type moviesResult struct {
		items []Item
		total int
	}
	result, err := b.execute(func() (any, error) {
		items, total, err := b.client.GetMovies(ctx)
		return moviesResult{items, total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	r := result.(moviesResult)
	return r.items, r.total, nil
}

// GetItem fetches a single item through the breaker.
func (b *BreakerClient) GetItem(ctx context.Context, itemID string) (*Item, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Item), nil
}

// GetItemsByIDs fetches a batch of items through the breaker.
func (b *BreakerClient) GetItemsByIDs(ctx context.Context, itemIDs []string) ([]Item, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetItemsByIDs(ctx, itemIDs)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// GetSimilar retrieves similar items through the breaker.
func (b *BreakerClient) GetSimilar(ctx context.Context, itemID string, limit int) ([]Item, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetSimilar(ctx, itemID, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// GetResume retrieves partially watched movies through the breaker.
func (b *BreakerClient) GetResume(ctx context.Context, limit int) ([]Item, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetResume(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// GetRecentlyAdded retrieves the latest additions through the breaker.
func (b *BreakerClient) GetRecentlyAdded(ctx context.Context, limit int) ([]Item, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetRecentlyAdded(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// Authenticate performs a login. Logins bypass the breaker so a silent
// re-login can still succeed while the breaker is open for data calls.
func (b *BreakerClient) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	return b.client.Authenticate(ctx, username, password)
}

// SetPlayed reports playback state through the breaker.
func (b *BreakerClient) SetPlayed(ctx context.Context, itemID string, played bool) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.client.SetPlayed(ctx, itemID, played)
	})
	return err
}

// Ping tests connectivity through the breaker.
func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.client.Ping(ctx)
	})
	return err
}

// ResolveImageURLs delegates to the underlying client (no network call).
func (b *BreakerClient) ResolveImageURLs(item *Item) (poster, backdrop, logo *string) {
	return b.client.ResolveImageURLs(item)
}

// WebSocketURL delegates to the underlying client (no network call).
func (b *BreakerClient) WebSocketURL() (string, error) {
	return b.client.WebSocketURL()
}

// Configured delegates to the underlying client.
func (b *BreakerClient) Configured() bool {
	return b.client.Configured()
}

// Reconfigure delegates to the underlying client.
func (b *BreakerClient) Reconfigure(baseURL, token, userID string) {
	b.client.Reconfigure(baseURL, token, userID)
}

// Snapshot delegates to the underlying client.
func (b *BreakerClient) Snapshot() (baseURL, token, userID string) {
	return b.client.Snapshot()
}
