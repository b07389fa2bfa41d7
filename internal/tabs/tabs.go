package tabs

import (
	"sync"
	"time"

	"github.com/kmahone/strum/internal/track"
)

// ID identifies one of the three track-list tabs.
type ID int

const (
	Search ID = iota
	History
	Favorites
)

// String returns a human-readable tab name.
func (id ID) String() string {
	switch id {
	case Search:
		return "search"
	case History:
		return "history"
	case Favorites:
		return "favorites"
	default:
		return "unknown"
	}
}

// maxHistory caps the history tab; the oldest entries are dropped first.
const maxHistory = 100

type list struct {
	tracks []track.Track
	cursor int
}

func (l *list) clampCursor() {
	if len(l.tracks) == 0 {
		l.cursor = 0
		return
	}
	if l.cursor >= len(l.tracks) {
		l.cursor = len(l.tracks) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// Manager owns the three ordered track lists and a selection cursor per
// tab. It holds only track data and cursors; playback state lives in the
// session state machine. Mutations are serialized by a single mutex.
type Manager struct {
	mu     sync.Mutex
	lists  [3]list
	active ID

	// source is the tab that supplied the currently playing track; it is
	// the tab end-of-track auto-advance draws the next track from.
	source    ID
	hasSource bool
}

func NewManager() *Manager {
	return &Manager{}
}

// Active returns the currently displayed tab.
func (m *Manager) Active() ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActive switches the displayed tab.
func (m *Manager) SetActive(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = id
}

// Navigate moves the active tab's cursor by delta, clamped to the valid
// range. No-op on an empty list.
func (m *Manager) Navigate(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[m.active]
	l.cursor += delta
	l.clampCursor()
}

// Selected returns the track under the active tab's cursor.
func (m *Manager) Selected() (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[m.active]
	if len(l.tracks) == 0 {
		return track.Track{}, false
	}
	return l.tracks[l.cursor], true
}

// MarkPlayed records that playback was started from the active tab at its
// current cursor. Auto-advance draws the next track from this tab.
func (m *Manager) MarkPlayed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = m.active
	m.hasSource = true
}

// Next advances the source tab's cursor and returns the track there, for
// end-of-track auto-advance. Returns false when no tab supplied the
// current track or its list is exhausted or cleared.
func (m *Manager) Next() (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSource {
		return track.Track{}, false
	}
	l := &m.lists[m.source]
	if l.cursor+1 >= len(l.tracks) {
		return track.Track{}, false
	}
	l.cursor++
	return l.tracks[l.cursor], true
}

// SetSearchResults replaces the search tab's contents and resets its cursor.
func (m *Manager) SetSearchResults(tracks []track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[Search] = list{tracks: append([]track.Track(nil), tracks...)}
}

// AppendHistory appends a played track to the history tab, deduplicating
// consecutive identical entries and enforcing the history cap.
func (m *Manager) AppendHistory(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[History]
	if n := len(l.tracks); n > 0 && l.tracks[n-1].Same(t) {
		return
	}
	t.PlayedAt = time.Now()
	l.tracks = append(l.tracks, t)
	if len(l.tracks) > maxHistory {
		l.tracks = l.tracks[len(l.tracks)-maxHistory:]
	}
	l.clampCursor()
}

// RemoveSelected removes the track under the active tab's cursor. Removing
// the currently playing track does not affect playback; only explicit
// stop/play actions or end-of-track events do.
func (m *Manager) RemoveSelected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[m.active]
	if len(l.tracks) == 0 {
		return
	}
	l.tracks = append(l.tracks[:l.cursor], l.tracks[l.cursor+1:]...)
	l.clampCursor()
}

// Clear empties the given tab. Playback keeps running; the tab simply can
// no longer offer a next track.
func (m *Manager) Clear(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[id] = list{}
}

// ToggleFavorite adds the track to the favorites tab, or removes it if
// already present. Returns true when the track is a favorite afterwards.
// Search and history are never affected.
func (m *Manager) ToggleFavorite(t track.Track) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[Favorites]
	for i, f := range l.tracks {
		if f.Same(t) {
			l.tracks = append(l.tracks[:i], l.tracks[i+1:]...)
			l.clampCursor()
			return false
		}
	}
	t.PlayedAt = time.Now()
	l.tracks = append(l.tracks, t)
	return true
}

// IsFavorite reports whether the track is in the favorites tab.
func (m *Manager) IsFavorite(t track.Track) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.lists[Favorites].tracks {
		if f.Same(t) {
			return true
		}
	}
	return false
}

// Cursor returns the active tab's cursor index, or -1 when the tab is empty.
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &m.lists[m.active]
	if len(l.tracks) == 0 {
		return -1
	}
	return l.cursor
}

// Export returns a copy of a tab's tracks, the persistence contract used
// by the file-backed store at shutdown.
func (m *Manager) Export(id ID) []track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]track.Track(nil), m.lists[id].tracks...)
}

// Import replaces a tab's tracks, the persistence contract used by the
// file-backed store at startup.
func (m *Manager) Import(id ID, tracks []track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[id] = list{tracks: append([]track.Track(nil), tracks...)}
}
