package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kmahone/strum/internal/session"
	"github.com/kmahone/strum/internal/tabs"
	"github.com/kmahone/strum/internal/track"
)

// IntentKind is the user action being dispatched.
type IntentKind int

const (
	IntentSwitchTab IntentKind = iota
	IntentNavigate
	IntentPlaySelected
	IntentTogglePause
	IntentStop
	IntentSeek
	IntentSetVolume
	IntentLike
	IntentRemove
	IntentClearTab
	IntentSearch
	IntentQuit
)

// Intent is one user action. Only the fields relevant to the Kind are set.
type Intent struct {
	Kind   IntentKind
	Tab    tabs.ID // SwitchTab
	Delta  int     // Navigate: cursor steps
	Seek   float64 // Seek: seconds, negative for backward
	Volume int     // SetVolume
	Query  string  // Search
}

// Entry is one track row in the active tab, annotated for rendering.
type Entry struct {
	Track   track.Track
	Liked   bool
	Playing bool
}

// View is the read-only rendering state returned by Dispatch.
type View struct {
	Session   session.Snapshot
	ActiveTab tabs.ID
	Entries   []Entry
	Cursor    int
}

// Resolver is the track-search backend.
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]track.Track, error)
}

// Sidecar is the part of the presence supervisor the core shuts down.
type Sidecar interface {
	Stop()
}

// Persister writes a tab's tracks through to durable storage. A nil
// Persister disables write-through; the caller may still save on exit.
type Persister interface {
	SaveTab(ctx context.Context, id tabs.ID, tracks []track.Track) error
}

// Core is the single intent-dispatch entry point between the input/render
// loop and the playback machinery. It performs no terminal I/O.
type Core struct {
	tabs     *tabs.Manager
	sess     *session.Session
	resolver Resolver
	sidecar  Sidecar
	persist  Persister
	logger   zerolog.Logger
}

func New(sess *session.Session, manager *tabs.Manager, resolver Resolver, sidecar Sidecar, persist Persister, logger zerolog.Logger) *Core {
	return &Core{
		tabs:     manager,
		sess:     sess,
		resolver: resolver,
		sidecar:  sidecar,
		persist:  persist,
		logger:   logger.With().Str("component", "core").Logger(),
	}
}

// Dispatch applies one intent and returns the updated view. All returned
// errors are terminal and recoverable; the session is left in a
// consistent state regardless.
func (c *Core) Dispatch(ctx context.Context, intent Intent) (View, error) {
	var err error

	switch intent.Kind {
	case IntentSwitchTab:
		c.tabs.SetActive(intent.Tab)
	case IntentNavigate:
		c.tabs.Navigate(intent.Delta)
	case IntentPlaySelected:
		if t, ok := c.tabs.Selected(); ok {
			c.tabs.MarkPlayed()
			err = c.sess.Play(ctx, t)
			c.persistTab(ctx, tabs.History)
		}
	case IntentTogglePause:
		err = c.sess.TogglePause(ctx)
	case IntentStop:
		c.sess.Stop()
	case IntentSeek:
		err = c.sess.Seek(ctx, intent.Seek)
	case IntentSetVolume:
		err = c.sess.SetVolume(ctx, intent.Volume)
	case IntentLike:
		if t, ok := c.tabs.Selected(); ok {
			c.tabs.ToggleFavorite(t)
			c.persistTab(ctx, tabs.Favorites)
		}
	case IntentRemove:
		c.tabs.RemoveSelected()
		c.persistTab(ctx, c.tabs.Active())
	case IntentClearTab:
		c.tabs.Clear(c.tabs.Active())
		c.persistTab(ctx, c.tabs.Active())
	case IntentSearch:
		err = c.search(ctx, intent.Query)
	case IntentQuit:
		c.Shutdown()
	}

	return c.View(), err
}

// persistTab writes one tab through to storage, best effort. The search
// tab is never persisted.
func (c *Core) persistTab(ctx context.Context, id tabs.ID) {
	if c.persist == nil || id == tabs.Search {
		return
	}
	if err := c.persist.SaveTab(ctx, id, c.tabs.Export(id)); err != nil {
		c.logger.Error().Err(err).Stringer("tab", id).Msg("Failed to persist tab")
	}
}

// search resolves the query and replaces the search tab. The tab is left
// unchanged when resolution fails.
func (c *Core) search(ctx context.Context, query string) error {
	results, err := c.resolver.Resolve(ctx, query)
	if err != nil {
		return err
	}
	c.tabs.SetSearchResults(results)
	c.tabs.SetActive(tabs.Search)
	return nil
}

// View builds the current read-only rendering state.
func (c *Core) View() View {
	snap := c.sess.Snapshot()
	active := c.tabs.Active()

	listed := c.tabs.Export(active)
	entries := make([]Entry, len(listed))
	for i, t := range listed {
		entries[i] = Entry{
			Track: t,
			Liked: c.tabs.IsFavorite(t),
		}
		if snap.Current != nil && snap.Current.Same(t) {
			entries[i].Playing = true
		}
	}

	return View{
		Session:   snap,
		ActiveTab: active,
		Entries:   entries,
		Cursor:    c.tabs.Cursor(),
	}
}

// Shutdown tears everything down: the sidecar first, so it cannot report
// a stale now-playing after the player exits, then the control channel.
func (c *Core) Shutdown() {
	c.logger.Info().Msg("Shutting down")
	c.sidecar.Stop()
	c.sess.Close()
}
