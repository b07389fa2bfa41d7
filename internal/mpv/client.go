package mpv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// requestTimeout bounds every command round trip. Commands that take
// longer indicate a wedged player, which callers treat as a channel error.
const requestTimeout = 3 * time.Second

func (s *Session) request(ctx context.Context, cmd ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return s.conn.request(ctx, cmd...)
}

// Resume starts or resumes playback.
func (s *Session) Resume(ctx context.Context) error {
	_, err := s.request(ctx, "set_property", "pause", false)
	return err
}

// Pause pauses playback.
func (s *Session) Pause(ctx context.Context) error {
	_, err := s.request(ctx, "set_property", "pause", true)
	return err
}

// TogglePause flips between playing and paused.
func (s *Session) TogglePause(ctx context.Context) error {
	_, err := s.request(ctx, "cycle", "pause")
	return err
}

// Seek moves the playback position by delta seconds, negative for backward.
func (s *Session) Seek(ctx context.Context, delta float64) error {
	_, err := s.request(ctx, "seek", delta, "relative")
	return err
}

// SetVolume sets the playback volume, clamped to 0..100.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	_, err := s.request(ctx, "set_property", "volume", volume)
	return err
}

// Position queries the current playback position in seconds.
func (s *Session) Position(ctx context.Context) (float64, error) {
	return s.getFloat(ctx, "time-pos")
}

// Duration queries the track duration in seconds. The second return is
// false while the duration is not yet known to the player.
func (s *Session) Duration(ctx context.Context) (float64, bool, error) {
	dur, err := s.getFloat(ctx, "duration")
	if err != nil {
		var ce CommandError
		if errors.As(err, &ce) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return dur, true, nil
}

func (s *Session) getFloat(ctx context.Context, property string) (float64, error) {
	data, err := s.request(ctx, "get_property", property)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("decode %s: %w", property, err)
	}
	return v, nil
}
