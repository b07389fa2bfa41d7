package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kmahone/strum/internal/tabs"
	"github.com/kmahone/strum/internal/track"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "strum.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	playedAt := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	in := []track.Track{
		{Locator: "https://youtube.com/watch?v=1", Title: "One", Uploader: "A", Duration: 215, PlayedAt: playedAt},
		{Locator: "https://youtube.com/watch?v=2", Title: "Two", Uploader: "B", Duration: 180},
	}
	if err := s.SaveTab(ctx, tabs.History, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.LoadTab(ctx, tabs.History)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("loaded %d tracks, want 2", len(out))
	}
	if out[0].Title != "One" || out[0].Duration != 215 || out[0].Uploader != "A" {
		t.Errorf("out[0] = %+v", out[0])
	}
	if !out[0].PlayedAt.Equal(playedAt) {
		t.Errorf("played_at = %v, want %v", out[0].PlayedAt, playedAt)
	}
	if !out[1].PlayedAt.IsZero() {
		t.Errorf("unset played_at should load as zero, got %v", out[1].PlayedAt)
	}
}

func TestSaveReplacesContents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []track.Track{{Locator: "u1", Title: "One"}, {Locator: "u2", Title: "Two"}}
	if err := s.SaveTab(ctx, tabs.Favorites, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []track.Track{{Locator: "u3", Title: "Three"}}
	if err := s.SaveTab(ctx, tabs.Favorites, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.LoadTab(ctx, tabs.Favorites)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Three" {
		t.Errorf("out = %+v, want just Three", out)
	}
}

func TestTabsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveTab(ctx, tabs.History, []track.Track{{Locator: "u1", Title: "H"}}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := s.SaveTab(ctx, tabs.Favorites, []track.Track{{Locator: "u2", Title: "F"}}); err != nil {
		t.Fatalf("save favorites: %v", err)
	}

	hist, err := s.LoadTab(ctx, tabs.History)
	if err != nil || len(hist) != 1 || hist[0].Title != "H" {
		t.Errorf("history = %+v, err %v", hist, err)
	}
	fav, err := s.LoadTab(ctx, tabs.Favorites)
	if err != nil || len(fav) != 1 || fav[0].Title != "F" {
		t.Errorf("favorites = %+v, err %v", fav, err)
	}
}

func TestSearchTabIsNotPersisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveTab(ctx, tabs.Search, nil); err == nil {
		t.Error("saving the search tab should fail")
	}
	if _, err := s.LoadTab(ctx, tabs.Search); err == nil {
		t.Error("loading the search tab should fail")
	}
}

func TestLoadEmptyTab(t *testing.T) {
	s := newTestStore(t)

	out, err := s.LoadTab(context.Background(), tabs.History)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %+v, want empty", out)
	}
}
