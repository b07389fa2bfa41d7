package tabs

import (
	"fmt"
	"testing"

	"github.com/kmahone/strum/internal/track"
)

func tr(n int) track.Track {
	return track.Track{
		Locator: fmt.Sprintf("https://example.com/watch?v=%d", n),
		Title:   fmt.Sprintf("Track %d", n),
	}
}

func titles(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestNavigateClampsToRange(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2), tr(3)})

	m.Navigate(-1)
	if got := m.Cursor(); got != 0 {
		t.Errorf("cursor after up from top = %d, want 0", got)
	}

	m.Navigate(10)
	if got := m.Cursor(); got != 2 {
		t.Errorf("cursor after large down = %d, want 2", got)
	}
}

func TestNavigateEmptyListIsNoop(t *testing.T) {
	m := NewManager()
	m.Navigate(1)
	m.Navigate(-1)
	if got := m.Cursor(); got != -1 {
		t.Errorf("cursor on empty tab = %d, want -1", got)
	}
	if _, ok := m.Selected(); ok {
		t.Error("Selected on empty tab should report no selection")
	}
}

func TestAppendHistoryDedupsConsecutive(t *testing.T) {
	m := NewManager()
	m.AppendHistory(tr(1))
	m.AppendHistory(tr(1))
	m.AppendHistory(tr(2))
	m.AppendHistory(tr(1))

	got := titles(m.Export(History))
	want := []string{"Track 1", "Track 2", "Track 1"}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendHistoryCap(t *testing.T) {
	m := NewManager()
	for i := 0; i < maxHistory+20; i++ {
		m.AppendHistory(tr(i))
	}
	got := m.Export(History)
	if len(got) != maxHistory {
		t.Fatalf("history length = %d, want %d", len(got), maxHistory)
	}
	if got[0].Title != "Track 20" {
		t.Errorf("oldest retained = %q, want %q", got[0].Title, "Track 20")
	}
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	m := NewManager()

	if !m.ToggleFavorite(tr(1)) {
		t.Error("first toggle should add to favorites")
	}
	if !m.IsFavorite(tr(1)) {
		t.Error("track should be a favorite after one toggle")
	}
	if m.ToggleFavorite(tr(1)) {
		t.Error("second toggle should remove from favorites")
	}
	if m.IsFavorite(tr(1)) {
		t.Error("double toggle must restore original membership")
	}
	if n := len(m.Export(Favorites)); n != 0 {
		t.Errorf("favorites length = %d, want 0", n)
	}
}

func TestToggleFavoriteLeavesOtherTabsAlone(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1)})
	m.AppendHistory(tr(1))

	m.ToggleFavorite(tr(1))
	m.ToggleFavorite(tr(1))

	if n := len(m.Export(Search)); n != 1 {
		t.Errorf("search length = %d, want 1", n)
	}
	if n := len(m.Export(History)); n != 1 {
		t.Errorf("history length = %d, want 1", n)
	}
}

func TestRemoveSelectedAdjustsCursor(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2), tr(3)})
	m.Navigate(2) // cursor on last entry

	m.RemoveSelected()
	if got := m.Cursor(); got != 1 {
		t.Errorf("cursor after removing last = %d, want 1", got)
	}
	sel, ok := m.Selected()
	if !ok || sel.Title != "Track 2" {
		t.Errorf("selected = %v, want Track 2", sel.Title)
	}
}

func TestNextAdvancesSourceTab(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2)})
	m.MarkPlayed()

	next, ok := m.Next()
	if !ok {
		t.Fatal("expected a next track")
	}
	if next.Title != "Track 2" {
		t.Errorf("next = %q, want %q", next.Title, "Track 2")
	}

	if _, ok := m.Next(); ok {
		t.Error("expected no next track at end of list")
	}
}

func TestNextUsesSourceTabNotActive(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2)})
	m.MarkPlayed()
	m.SetActive(History)

	next, ok := m.Next()
	if !ok || next.Title != "Track 2" {
		t.Errorf("next = %v ok=%v, want Track 2 from search tab", next.Title, ok)
	}
}

func TestNextAfterClearReturnsNothing(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2)})
	m.MarkPlayed()
	m.Clear(Search)

	if _, ok := m.Next(); ok {
		t.Error("cleared source tab must not offer a next track")
	}
}

func TestNextWithoutPlayingReturnsNothing(t *testing.T) {
	m := NewManager()
	m.SetSearchResults([]track.Track{tr(1), tr(2)})

	if _, ok := m.Next(); ok {
		t.Error("no next track before anything was played")
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	m := NewManager()
	in := []track.Track{tr(1), tr(2), tr(3)}
	m.Import(Favorites, in)

	out := m.Export(Favorites)
	if len(out) != len(in) {
		t.Fatalf("exported %d tracks, want %d", len(out), len(in))
	}

	// Export must be a copy, not an alias.
	out[0].Title = "mutated"
	if got := m.Export(Favorites)[0].Title; got != "Track 1" {
		t.Errorf("export aliased internal state: %q", got)
	}
}
