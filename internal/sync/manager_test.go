// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package sync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/secrets"
)

func openTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openTestCipher(t *testing.T) *secrets.Cipher {
	t.Helper()
	cipher, err := secrets.Open(filepath.Join(t.TempDir(), "test.key"))
	if err != nil {
		t.Fatalf("Open cipher: %v", err)
	}
	return cipher
}

func newTestManager(t *testing.T, api *fakeAPI) (*Manager, *database.Store) {
	t.Helper()
	store := openTestStore(t)
	auth := NewAuthenticator(store, openTestCipher(t), api)
	applier := NewApplier(store, api)
	return NewManager(store, api, auth, applier), store
}

func remoteMovie(id, name string) jellyfin.Item {
	year := 1984
	return jellyfin.Item{
		ID:             id,
		Name:           name,
		Type:           "Movie",
		ProductionYear: &year,
		RunTimeTicks:   87_600_000_000,
		Genres:         []string{"Drama"},
		People: []jellyfin.Person{
			{Name: "Wim Wenders", Type: "Director"},
			{Name: "Harry Dean Stanton", Type: "Actor"},
		},
		ImageTags: map[string]string{"Primary": "tag-p"},
	}
}

func TestRunFullSyncReconcilesCatalog(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			return []jellyfin.Item{
				remoteMovie("jf-1", "Paris, Texas"),
				remoteMovie("jf-2", "After Hours"),
			}, 2, nil
		},
	}
	manager, store := newTestManager(t, api)
	ctx := context.Background()

	// Pre-seed an orphan carrying a tag so the run exercises both the
	// orphan diff and the usage recount.
	applier := NewApplier(store, api)
	orphan := remoteMovie("jf-gone", "Removed Remotely")
	if err := applier.ApplyRemoteItem(ctx, &orphan); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	local, err := store.GetMovieByJellyfinID(ctx, "jf-gone")
	if err != nil {
		t.Fatalf("load orphan: %v", err)
	}
	tag, err := store.EnsureTag(ctx, "melancholic", "Melancholic", "")
	if err != nil {
		t.Fatalf("EnsureTag: %v", err)
	}
	if err := store.SetMovieTag(ctx, local.ID, tag.ID, true); err != nil {
		t.Fatalf("SetMovieTag: %v", err)
	}
	if err := store.RecountTagUsage(ctx); err != nil {
		t.Fatalf("RecountTagUsage: %v", err)
	}

	result, err := manager.RunFullSync(ctx)
	if err != nil {
		t.Fatalf("RunFullSync: %v", err)
	}

	if result.Found != 2 {
		t.Errorf("Found: expected 2, got %d", result.Found)
	}
	if result.Updated != 2 {
		t.Errorf("Updated: expected 2, got %d", result.Updated)
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted: expected 1, got %d", result.Deleted)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors: expected none, got %v", result.Errors)
	}

	if _, err := store.GetMovieByJellyfinID(ctx, "jf-gone"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("orphan should be deleted, got %v", err)
	}

	movie, err := store.GetMovieByJellyfinID(ctx, "jf-1")
	if err != nil {
		t.Fatalf("load synced movie: %v", err)
	}
	if movie.Director != "Wim Wenders" {
		t.Errorf("director: expected %q, got %q", "Wim Wenders", movie.Director)
	}
	if movie.RuntimeMins == nil || *movie.RuntimeMins != 146 {
		t.Errorf("runtime: expected 146 minutes, got %v", movie.RuntimeMins)
	}
	if movie.PosterURL == nil {
		t.Error("poster URL should be derived from the Primary tag")
	}
	if movie.BackdropURL != nil {
		t.Error("backdrop URL should be nil without a backdrop tag")
	}

	// The orphan's tag association cascaded away; the recount must
	// reflect that.
	recounted, err := store.GetTagBySlug(ctx, "melancholic")
	if err != nil {
		t.Fatalf("GetTagBySlug: %v", err)
	}
	if recounted.UsageCount != 0 {
		t.Errorf("usage_count: expected 0 after orphan delete, got %d", recounted.UsageCount)
	}
}

func TestRunFullSyncSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil, 0, nil
		},
	}
	manager, _ := newTestManager(t, api)

	firstDone := make(chan error, 1)
	go func() {
		_, err := manager.RunFullSync(context.Background())
		firstDone <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first sync never started")
	}

	if !manager.Status().IsRunning {
		t.Error("status should report a running sync")
	}

	// A second trigger while the first is in flight fails fast; it never
	// queues behind the running one.
	if _, err := manager.RunFullSync(context.Background()); !errors.Is(err, ErrSyncRunning) {
		t.Fatalf("expected ErrSyncRunning, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if manager.Status().IsRunning {
		t.Error("status should report idle after completion")
	}

	// With the first run finished a new sync is accepted again.
	if _, err := manager.RunFullSync(context.Background()); err != nil {
		t.Fatalf("follow-up sync failed: %v", err)
	}
}

func storeCredentialSet(t *testing.T, store *database.Store, cipher *secrets.Cipher) {
	t.Helper()
	ctx := context.Background()
	encrypted, err := cipher.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for key, value := range map[string]string{
		SettingServerURL:   "http://jf.local:8096",
		SettingUsername:    "alice",
		SettingPasswordEnc: encrypted,
	} {
		v := value
		if err := store.SettingSet(ctx, key, &v); err != nil {
			t.Fatalf("SettingSet %s: %v", key, err)
		}
	}
}

func TestRunFullSyncSilentReloginOnce(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(call int) ([]jellyfin.Item, int, error) {
			if call == 1 {
				return nil, 0, jellyfin.ErrAuthExpired
			}
			return []jellyfin.Item{remoteMovie("jf-1", "Paris, Texas")}, 1, nil
		},
		authFn: func(username, password string) (*jellyfin.AuthResult, error) {
			if username != "alice" || password != "hunter2" {
				return nil, errors.New("wrong credentials")
			}
			return &jellyfin.AuthResult{
				AccessToken: "fresh-token",
				User:        jellyfin.AuthUser{ID: "user-1", Name: "alice"},
			}, nil
		},
	}

	store := openTestStore(t)
	cipher := openTestCipher(t)
	storeCredentialSet(t, store, cipher)
	auth := NewAuthenticator(store, cipher, api)
	manager := NewManager(store, api, auth, NewApplier(store, api))

	result, err := manager.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("RunFullSync: %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated: expected 1, got %d", result.Updated)
	}

	moviesCalls, authCalls := api.counts()
	if moviesCalls != 2 {
		t.Errorf("expected exactly one retry fetch, got %d calls", moviesCalls)
	}
	if authCalls != 1 {
		t.Errorf("expected exactly one re-login, got %d", authCalls)
	}

	// The fresh token must be persisted and live on the client.
	token, _, err := store.SettingGet(context.Background(), SettingAccessToken)
	if err != nil {
		t.Fatalf("SettingGet: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("persisted token: expected %q, got %q", "fresh-token", token)
	}
	if !api.Configured() {
		t.Error("client should be reconfigured after re-login")
	}
}

func TestRunFullSyncSecondAuthFailureAborts(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			return nil, 0, jellyfin.ErrAuthExpired
		},
		authFn: func(username, password string) (*jellyfin.AuthResult, error) {
			return &jellyfin.AuthResult{
				AccessToken: "fresh-token",
				User:        jellyfin.AuthUser{ID: "user-1", Name: "alice"},
			}, nil
		},
	}

	store := openTestStore(t)
	cipher := openTestCipher(t)
	storeCredentialSet(t, store, cipher)
	auth := NewAuthenticator(store, cipher, api)
	manager := NewManager(store, api, auth, NewApplier(store, api))

	_, err := manager.RunFullSync(context.Background())
	if !errors.Is(err, jellyfin.ErrAuthExpired) {
		t.Fatalf("expected the second 401 to abort the run, got %v", err)
	}

	moviesCalls, authCalls := api.counts()
	if moviesCalls != 2 {
		t.Errorf("expected exactly 2 fetch attempts, got %d", moviesCalls)
	}
	if authCalls != 1 {
		t.Errorf("re-login must be attempted exactly once, got %d", authCalls)
	}
}

func TestRunFullSyncPerItemErrorsDoNotAbort(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			return []jellyfin.Item{
				remoteMovie("jf-1", "Paris, Texas"),
				{ID: "", Name: "Broken payload"},
				remoteMovie("jf-3", "After Hours"),
			}, 3, nil
		},
	}
	manager, store := newTestManager(t, api)

	result, err := manager.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("RunFullSync: %v", err)
	}

	if result.Found != 3 {
		t.Errorf("Found: expected 3, got %d", result.Found)
	}
	if result.Updated != 2 {
		t.Errorf("Updated: expected 2, got %d", result.Updated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors: expected 1, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "Broken payload") {
		t.Errorf("error should name the failing item: %q", result.Errors[0])
	}

	n, err := store.CountMovies(context.Background())
	if err != nil {
		t.Fatalf("CountMovies: %v", err)
	}
	if n != 2 {
		t.Errorf("expected the healthy items to land, got %d rows", n)
	}
}

func TestRunFullSyncNetworkFailureAborts(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			return nil, 0, errors.New("connection refused")
		},
	}
	manager, _ := newTestManager(t, api)

	if _, err := manager.RunFullSync(context.Background()); err == nil {
		t.Fatal("expected network failure to abort the run")
	}

	status := manager.Status()
	if status.IsRunning {
		t.Error("status should report idle after a failed run")
	}
}

func TestImportByTitle(t *testing.T) {
	api := &fakeAPI{
		moviesFn: func(int) ([]jellyfin.Item, int, error) {
			return []jellyfin.Item{
				remoteMovie("jf-1", "Paris, Texas"),
				remoteMovie("jf-2", "After Hours"),
			}, 2, nil
		},
	}
	manager, store := newTestManager(t, api)
	ctx := context.Background()

	movie, err := manager.ImportByTitle(ctx, "After Hours")
	if err != nil {
		t.Fatalf("ImportByTitle: %v", err)
	}
	if movie.JellyfinID != "jf-2" {
		t.Errorf("expected jf-2, got %q", movie.JellyfinID)
	}

	// Only the requested title lands; no full sync happens.
	n, err := store.CountMovies(ctx)
	if err != nil {
		t.Fatalf("CountMovies: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 imported movie, got %d", n)
	}

	if _, err := manager.ImportByTitle(ctx, "No Such Film"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown title, got %v", err)
	}
}
