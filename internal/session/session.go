package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kmahone/strum/internal/mpv"
	"github.com/kmahone/strum/internal/track"
)

// Status represents the playback state of the session.
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

// String returns a human-readable representation of the Status.
func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Player is one open control-channel session to the playback process.
type Player interface {
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	TogglePause(ctx context.Context) error
	Seek(ctx context.Context, delta float64) error
	SetVolume(ctx context.Context, volume int) error
	Events() <-chan mpv.Event
	Socket() string
	Close()
}

// Opener opens a control channel for a track.
type Opener func(ctx context.Context, t track.Track) (Player, error)

// Notifier receives presence transitions. Implementations must never block.
type Notifier interface {
	NowPlaying(title, socket string)
	Stopped()
}

// Queue is the session's view of the tab manager: a history sink and a
// next-track provider for end-of-track auto-advance.
type Queue interface {
	AppendHistory(t track.Track)
	Next() (track.Track, bool)
}

// Snapshot is a read-only view of the playback session.
type Snapshot struct {
	Status      Status
	Current     *track.Track
	Position    float64
	Duration    float64
	HasDuration bool
}

// Session is the single owner of playback state. Every mutation of the
// session or its control channel goes through its mutex; user commands
// and the event-listener goroutine both funnel into it.
type Session struct {
	open     Opener
	queue    Queue
	notifier Notifier
	advance  bool
	logger   zerolog.Logger

	mu          sync.Mutex
	status      Status
	current     *track.Track
	position    float64
	duration    float64
	hasDuration bool
	seekPending bool
	player      Player

	// volume is the last user-set volume, reapplied when a new control
	// channel opens; -1 means the player default is kept.
	volume int

	// gen invalidates event loops of closed sessions: an event is only
	// applied when its loop's generation matches the current one.
	gen int
}

// New creates a stopped Session. advance controls end-of-track auto-advance
// from the tab that supplied the playing track.
func New(open Opener, queue Queue, notifier Notifier, advance bool, logger zerolog.Logger) *Session {
	return &Session{
		open:     open,
		queue:    queue,
		notifier: notifier,
		advance:  advance,
		logger:   logger.With().Str("component", "session").Logger(),
		volume:   -1,
	}
}

// Play starts playback of the given track, closing any prior control
// channel first. On launch failure the session is left Stopped and the
// error is returned to the caller.
func (s *Session) Play(ctx context.Context, t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked(ctx, t)
}

func (s *Session) playLocked(ctx context.Context, t track.Track) error {
	s.closePlayerLocked()

	p, err := s.open(ctx, t)
	if err != nil {
		s.resetLocked()
		s.notifier.Stopped()
		s.logger.Warn().Err(err).Str("title", t.Title).Msg("Failed to open control channel")
		return err
	}

	s.player = p
	cur := t
	s.current = &cur
	s.status = Playing
	s.position = 0
	s.duration = t.Duration
	s.hasDuration = t.Duration > 0
	s.seekPending = false

	if s.volume >= 0 {
		if err := p.SetVolume(ctx, s.volume); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to restore volume")
		}
	}

	s.queue.AppendHistory(t)
	s.notifier.NowPlaying(t.Title, p.Socket())

	go s.eventLoop(s.gen, p.Events())

	s.logger.Info().Str("title", t.Title).Msg("Playing")
	return nil
}

// Stop ends playback explicitly, closing the control channel and
// notifying the presence sidecar.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Stopped && s.player == nil {
		return
	}
	s.stopLocked()
}

// TogglePause flips between playing and paused. A channel error forces
// the session to Stopped and is returned to the caller.
func (s *Session) TogglePause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return mpv.ErrNoSession
	}
	if err := s.player.TogglePause(ctx); err != nil {
		return s.channelErrorLocked(err)
	}
	if s.status == Playing {
		s.status = Paused
	} else {
		s.status = Playing
	}
	return nil
}

// Pause pauses playback.
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return mpv.ErrNoSession
	}
	if err := s.player.Pause(ctx); err != nil {
		return s.channelErrorLocked(err)
	}
	s.status = Paused
	return nil
}

// Resume resumes paused playback.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return mpv.ErrNoSession
	}
	if err := s.player.Resume(ctx); err != nil {
		return s.channelErrorLocked(err)
	}
	s.status = Playing
	return nil
}

// Seek moves the playback position by delta seconds. Fails with
// ErrNoSession before any track is loaded.
func (s *Session) Seek(ctx context.Context, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return mpv.ErrNoSession
	}
	// Accept the next lower tick instead of discarding it as stale.
	s.seekPending = true
	if err := s.player.Seek(ctx, delta); err != nil {
		s.seekPending = false
		return s.channelErrorLocked(err)
	}
	return nil
}

// SetVolume sets the player volume (0..100).
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return mpv.ErrNoSession
	}
	if err := s.player.SetVolume(ctx, volume); err != nil {
		return s.channelErrorLocked(err)
	}
	s.volume = volume
	return nil
}

// Snapshot returns a copy of the current playback state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Status:      s.status,
		Position:    s.position,
		Duration:    s.duration,
		HasDuration: s.hasDuration,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	return snap
}

// Close tears the control channel down without a presence notification;
// the supervisor is stopped before the channel during shutdown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePlayerLocked()
	s.resetLocked()
}

// eventLoop forwards asynchronous channel events into the state machine
// until the channel closes. It never mutates state directly.
func (s *Session) eventLoop(gen int, events <-chan mpv.Event) {
	for ev := range events {
		s.handleEvent(gen, ev)
	}
	s.handleChannelClosed(gen)
}

func (s *Session) handleEvent(gen int, ev mpv.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}

	switch ev.Kind {
	case mpv.EventPosition:
		if s.status == Stopped {
			return
		}
		// Out-of-order ticks would make the position jump backwards.
		if ev.Value < s.position && s.status == Playing && !s.seekPending {
			return
		}
		s.position = ev.Value
		s.seekPending = false
	case mpv.EventDuration:
		s.duration = ev.Value
		s.hasDuration = true
	case mpv.EventPaused:
		if s.current != nil {
			s.status = Paused
		}
	case mpv.EventResumed:
		if s.current != nil {
			s.status = Playing
		}
	case mpv.EventEnd:
		s.handleEndLocked(ev.Reason)
	}
}

func (s *Session) handleEndLocked(reason string) {
	if reason == "eof" && s.advance {
		if next, ok := s.queue.Next(); ok {
			s.logger.Info().Str("title", next.Title).Msg("Advancing to next track")
			if err := s.playLocked(context.Background(), next); err == nil {
				return
			}
		}
	}
	s.stopLocked()
}

// handleChannelClosed runs when the event stream ends. For the live
// generation that means the player died without an end-file event.
func (s *Session) handleChannelClosed(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.logger.Warn().Msg("Control channel lost")
	s.stopLocked()
}

// channelErrorLocked maps a command failure: channel errors desynchronize
// the session and force it to Stopped; anything else passes through.
func (s *Session) channelErrorLocked(err error) error {
	if errors.Is(err, mpv.ErrDisconnected) || errors.Is(err, mpv.ErrTimeout) {
		s.logger.Warn().Err(err).Msg("Control channel error, stopping")
		s.stopLocked()
	}
	return err
}

func (s *Session) stopLocked() {
	s.closePlayerLocked()
	s.resetLocked()
	s.notifier.Stopped()
	s.logger.Info().Msg("Stopped")
}

// closePlayerLocked invalidates the running event loop and closes the
// current control channel, if any. Idempotent.
func (s *Session) closePlayerLocked() {
	s.gen++
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}

func (s *Session) resetLocked() {
	s.status = Stopped
	s.current = nil
	s.position = 0
	s.duration = 0
	s.hasDuration = false
	s.seekPending = false
}
