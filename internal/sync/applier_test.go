// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package sync

import (
	"context"
	"testing"

	"github.com/goccy/go-json"

	"github.com/cinemood/cinemood/internal/jellyfin"
)

func TestApplyRemoteItemMapping(t *testing.T) {
	api := &fakeAPI{}
	store := openTestStore(t)
	applier := NewApplier(store, api)
	ctx := context.Background()

	year := 2001
	item := jellyfin.Item{
		ID:             "jf-1",
		Name:           "Mulholland Drive",
		OriginalTitle:  "Mulholland Dr.",
		Type:           "Movie",
		Overview:       "A dark odyssey through Hollywood.",
		ProductionYear: &year,
		RunTimeTicks:   88_200_000_000,
		Genres:         []string{"Mystery", "Thriller"},
		People: []jellyfin.Person{
			{Name: "Naomi Watts", Type: "Actor", Role: "Betty"},
			{Name: "David Lynch", Type: "Director"},
			{Name: "Angelo Badalamenti", Type: "Composer"},
			{Name: "Laura Harring", Type: "Actor", Role: "Rita"},
			{Name: "Another Director", Type: "Director"},
		},
		ImageTags:         map[string]string{"Primary": "tag-p", "Logo": "tag-l"},
		BackdropImageTags: []string{"tag-b"},
	}

	if err := applier.ApplyRemoteItem(ctx, &item); err != nil {
		t.Fatalf("ApplyRemoteItem: %v", err)
	}

	movie, err := store.GetMovieByJellyfinID(ctx, "jf-1")
	if err != nil {
		t.Fatalf("GetMovieByJellyfinID: %v", err)
	}

	if movie.Title != "Mulholland Drive" {
		t.Errorf("title: got %q", movie.Title)
	}
	if movie.OriginalTitle != "Mulholland Dr." {
		t.Errorf("original title: got %q", movie.OriginalTitle)
	}
	if movie.Year == nil || *movie.Year != 2001 {
		t.Errorf("year: got %v", movie.Year)
	}
	if movie.RuntimeMins == nil || *movie.RuntimeMins != 147 {
		t.Errorf("runtime: expected 147 minutes from ticks, got %v", movie.RuntimeMins)
	}

	// First director credit wins; only actors land in the cast list.
	if movie.Director != "David Lynch" {
		t.Errorf("director: expected first director credit, got %q", movie.Director)
	}
	if len(movie.Cast) != 2 || movie.Cast[0] != "Naomi Watts" || movie.Cast[1] != "Laura Harring" {
		t.Errorf("cast: expected the two actors in order, got %v", movie.Cast)
	}

	if movie.PosterURL == nil || movie.BackdropURL == nil || movie.LogoURL == nil {
		t.Error("all three image URLs should be derived when tags are present")
	}

	// The raw payload snapshot must round-trip, watched state included.
	var snapshot jellyfin.Item
	if err := json.Unmarshal(movie.Metadata, &snapshot); err != nil {
		t.Fatalf("decode metadata snapshot: %v", err)
	}
	if snapshot.ID != "jf-1" || snapshot.RunTimeTicks != 88_200_000_000 {
		t.Errorf("metadata snapshot mismatch: %+v", snapshot)
	}
}

func TestApplyRemoteItemNoRuntime(t *testing.T) {
	api := &fakeAPI{}
	store := openTestStore(t)
	applier := NewApplier(store, api)
	ctx := context.Background()

	item := jellyfin.Item{ID: "jf-2", Name: "No Runtime", Type: "Movie"}
	if err := applier.ApplyRemoteItem(ctx, &item); err != nil {
		t.Fatalf("ApplyRemoteItem: %v", err)
	}

	movie, err := store.GetMovieByJellyfinID(ctx, "jf-2")
	if err != nil {
		t.Fatalf("GetMovieByJellyfinID: %v", err)
	}
	if movie.RuntimeMins != nil {
		t.Errorf("runtime should be nil without ticks, got %v", movie.RuntimeMins)
	}
	if movie.PosterURL != nil || movie.BackdropURL != nil || movie.LogoURL != nil {
		t.Error("image URLs should be nil without image tags")
	}
}

func TestApplyRemoteItemRejectsMissingID(t *testing.T) {
	api := &fakeAPI{}
	applier := NewApplier(openTestStore(t), api)

	if err := applier.ApplyRemoteItem(context.Background(), &jellyfin.Item{Name: "No ID"}); err == nil {
		t.Fatal("expected error for missing item id")
	}
	if err := applier.ApplyRemoteItem(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil item")
	}
}

func TestApplyRemoteItemIdempotent(t *testing.T) {
	api := &fakeAPI{}
	store := openTestStore(t)
	applier := NewApplier(store, api)
	ctx := context.Background()

	item := remoteMovie("jf-1", "Paris, Texas")

	// Applying the same payload via both delivery paths' shared applier
	// twice yields one identical row.
	if err := applier.ApplyRemoteItem(ctx, &item); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first, err := store.GetMovieByJellyfinID(ctx, "jf-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := applier.ApplyRemoteItem(ctx, &item); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second, err := store.GetMovieByJellyfinID(ctx, "jf-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("surrogate id changed: %q -> %q", first.ID, second.ID)
	}
	if second.Title != first.Title || second.Director != first.Director {
		t.Error("descriptive fields should be identical after re-apply")
	}

	n, err := store.CountMovies(ctx)
	if err != nil {
		t.Fatalf("CountMovies: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}
