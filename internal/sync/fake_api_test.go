// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/cinemood/cinemood/internal/jellyfin"
)

// fakeAPI implements jellyfin.API for coordinator tests. Behavior is
// injected per call via function fields; counters track invocations.
type fakeAPI struct {
	mu gosync.Mutex

	moviesFn func(call int) ([]jellyfin.Item, int, error)
	authFn   func(username, password string) (*jellyfin.AuthResult, error)

	moviesCalls int
	authCalls   int

	baseURL string
	token   string
	userID  string
}

var _ jellyfin.API = (*fakeAPI)(nil)

func (f *fakeAPI) GetMovies(ctx context.Context) ([]jellyfin.Item, int, error) {
	f.mu.Lock()
	f.moviesCalls++
	call := f.moviesCalls
	fn := f.moviesFn
	f.mu.Unlock()

	if fn == nil {
		return nil, 0, errors.New("fakeAPI: moviesFn not set")
	}
	return fn(call)
}

func (f *fakeAPI) Authenticate(ctx context.Context, username, password string) (*jellyfin.AuthResult, error) {
	f.mu.Lock()
	f.authCalls++
	fn := f.authFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("fakeAPI: authFn not set")
	}
	return fn(username, password)
}

func (f *fakeAPI) GetItem(ctx context.Context, itemID string) (*jellyfin.Item, error) {
	return nil, errors.New("fakeAPI: GetItem not implemented")
}

func (f *fakeAPI) GetItemsByIDs(ctx context.Context, itemIDs []string) ([]jellyfin.Item, error) {
	return nil, errors.New("fakeAPI: GetItemsByIDs not implemented")
}

func (f *fakeAPI) GetSimilar(ctx context.Context, itemID string, limit int) ([]jellyfin.Item, error) {
	return nil, nil
}

func (f *fakeAPI) GetResume(ctx context.Context, limit int) ([]jellyfin.Item, error) {
	return nil, nil
}

func (f *fakeAPI) GetRecentlyAdded(ctx context.Context, limit int) ([]jellyfin.Item, error) {
	return nil, nil
}

func (f *fakeAPI) SetPlayed(ctx context.Context, itemID string, played bool) error { return nil }

func (f *fakeAPI) Ping(ctx context.Context) error { return nil }

// ResolveImageURLs mirrors the real derivation rule: a URL per present
// tag, nil otherwise.
func (f *fakeAPI) ResolveImageURLs(item *jellyfin.Item) (poster, backdrop, logo *string) {
	mk := func(kind string) *string {
		u := "http://fake/Items/" + item.ID + "/Images/" + kind
		return &u
	}
	if tag, ok := item.ImageTags["Primary"]; ok && tag != "" {
		poster = mk("Primary")
	}
	if tag, ok := item.ImageTags["Logo"]; ok && tag != "" {
		logo = mk("Logo")
	}
	if len(item.BackdropImageTags) > 0 && item.BackdropImageTags[0] != "" {
		backdrop = mk("Backdrop/0")
	}
	return poster, backdrop, logo
}

func (f *fakeAPI) WebSocketURL() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baseURL == "" || f.token == "" {
		return "", jellyfin.ErrNotConfigured
	}
	return "ws://fake/socket", nil
}

func (f *fakeAPI) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL != "" && f.token != "" && f.userID != ""
}

func (f *fakeAPI) Reconfigure(baseURL, token, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseURL, f.token, f.userID = baseURL, token, userID
}

func (f *fakeAPI) Snapshot() (baseURL, token, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL, f.token, f.userID
}

func (f *fakeAPI) counts() (moviesCalls, authCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moviesCalls, f.authCalls
}
