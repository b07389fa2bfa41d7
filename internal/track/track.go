package track

import (
	"fmt"
	"time"
)

// Track represents a resolved, playable track. Immutable once created.
// The same track may appear in several tabs at once; identity is the
// stream locator.
type Track struct {
	Locator  string    // Resolved stream URL or file path
	Title    string    // Display title
	Uploader string    // Channel/artist name, may be empty
	Duration float64   // Seconds; 0 when unknown until resolved
	PlayedAt time.Time // When the track was last played or favorited
}

// Same reports whether two tracks refer to the same underlying stream.
func (t Track) Same(other Track) bool {
	return t.Locator == other.Locator
}

// FormatDuration renders the duration as MM:SS, or "??:??" when unknown.
func (t Track) FormatDuration() string {
	if t.Duration <= 0 {
		return "??:??"
	}
	secs := int(t.Duration)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
