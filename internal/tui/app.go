package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/kmahone/strum/internal/core"
	"github.com/kmahone/strum/internal/session"
	"github.com/kmahone/strum/internal/tabs"
)

const (
	dispatchTimeout = 15 * time.Second
	flashDuration   = 4 * time.Second
	maxTitleWidth   = 60
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	SeekStep    float64       // Seconds per seek keypress
	VolumeStep  int           // Volume change per keypress
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
		SeekStep:    5,
		VolumeStep:  5,
	}
}

// App is the TUI application. It translates key events into intents and
// renders the view the dispatcher returns; it holds no playback state of
// its own.
type App struct {
	app    *tview.Application
	tabBar *tview.TextView
	list   *tview.TextView
	player *tview.TextView
	status *tview.TextView
	search *tview.InputField
	layout *tview.Flex

	config Config
	core   *core.Core
	logger zerolog.Logger

	// Mutex protects flash and volume, written by dispatch goroutines
	// and read by the ticker goroutine.
	mu         sync.Mutex
	flash      string
	flashUntil time.Time
	volume     int

	searching bool // search input has focus (tview event loop only)

	// Last-rendered content for change detection
	lastTabBar string
	lastList   string
	lastPlayer string
	lastStatus string

	// Cached progress bar width to stabilize change detection.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a TUI bound to the given dispatcher.
func New(c *core.Core, cfg Config, volume int, logger zerolog.Logger) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		core:   c,
		volume: volume,
		logger: logger.With().Str("component", "tui").Logger(),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.tabBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.list = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.list.SetBorder(true).
		SetTitle(" Tracks ").
		SetTitleAlign(tview.AlignLeft)

	a.player = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.player.SetBorder(true)

	a.search = tview.NewInputField().
		SetLabel(" / ").
		SetFieldBackgroundColor(tcell.ColorDefault)
	a.search.SetDoneFunc(a.handleSearchDone)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.tabBar, 1, 1, false).
		AddItem(a.list, 0, 1, false).
		AddItem(a.player, 4, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(a.layout, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if a.searching {
		// The input field owns the keyboard until the query is done.
		return event
	}

	switch event.Key() {
	case tcell.KeyUp:
		a.dispatch(core.Intent{Kind: core.IntentNavigate, Delta: -1})
		return nil
	case tcell.KeyDown:
		a.dispatch(core.Intent{Kind: core.IntentNavigate, Delta: 1})
		return nil
	case tcell.KeyLeft:
		a.dispatch(core.Intent{Kind: core.IntentSeek, Seek: -a.config.SeekStep})
		return nil
	case tcell.KeyRight:
		a.dispatch(core.Intent{Kind: core.IntentSeek, Seek: a.config.SeekStep})
		return nil
	case tcell.KeyEnter:
		a.dispatch(core.Intent{Kind: core.IntentPlaySelected})
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case '1':
		a.dispatch(core.Intent{Kind: core.IntentSwitchTab, Tab: tabs.Search})
		return nil
	case '2':
		a.dispatch(core.Intent{Kind: core.IntentSwitchTab, Tab: tabs.History})
		return nil
	case '3':
		a.dispatch(core.Intent{Kind: core.IntentSwitchTab, Tab: tabs.Favorites})
		return nil
	case '/':
		a.openSearch()
		return nil
	case ' ':
		a.dispatch(core.Intent{Kind: core.IntentTogglePause})
		return nil
	case 's', 'S':
		a.dispatch(core.Intent{Kind: core.IntentStop})
		return nil
	case 'j':
		a.dispatch(core.Intent{Kind: core.IntentNavigate, Delta: 1})
		return nil
	case 'k':
		a.dispatch(core.Intent{Kind: core.IntentNavigate, Delta: -1})
		return nil
	case 'l', 'L':
		a.dispatch(core.Intent{Kind: core.IntentLike})
		return nil
	case 'd', 'D':
		a.dispatch(core.Intent{Kind: core.IntentRemove})
		return nil
	case 'c', 'C':
		a.dispatch(core.Intent{Kind: core.IntentClearTab})
		return nil
	case '+', '=':
		a.changeVolume(a.config.VolumeStep)
		return nil
	case '-':
		a.changeVolume(-a.config.VolumeStep)
		return nil
	}
	return event
}

// openSearch swaps the status line for the query input field.
func (a *App) openSearch() {
	a.searching = true
	a.search.SetText("")
	a.layout.RemoveItem(a.status)
	a.layout.AddItem(a.search, 1, 1, true)
	a.app.SetFocus(a.search)
}

// closeSearch restores the status line and returns focus to the list.
func (a *App) closeSearch() {
	a.searching = false
	a.layout.RemoveItem(a.search)
	a.layout.AddItem(a.status, 1, 1, false)
	a.app.SetFocus(a.layout)
}

func (a *App) handleSearchDone(key tcell.Key) {
	query := strings.TrimSpace(a.search.GetText())
	a.closeSearch()
	if key != tcell.KeyEnter || query == "" {
		return
	}
	a.setFlash("Searching...")
	a.dispatch(core.Intent{Kind: core.IntentSearch, Query: query})
}

func (a *App) changeVolume(delta int) {
	a.mu.Lock()
	v := a.volume + delta
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	a.volume = v
	a.mu.Unlock()
	a.dispatch(core.Intent{Kind: core.IntentSetVolume, Volume: v})
}

// dispatch fires the intent off the tview event loop so a slow backend
// never freezes the keyboard. The refresh ticker picks up the result.
func (a *App) dispatch(intent core.Intent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if _, err := a.core.Dispatch(ctx, intent); err != nil {
			a.logger.Warn().Err(err).Msg("Dispatch failed")
			a.setFlash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
			return
		}
		if intent.Kind == core.IntentSearch {
			a.setFlash("")
		}
	}()
}

func (a *App) setFlash(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flash = msg
	a.flashUntil = time.Now().Add(flashDuration)
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.refreshLoop(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// refreshLoop is the sole source of redraws. A single ticker prevents
// queued redraw buildup when events arrive faster than the terminal can
// paint.
func (a *App) refreshLoop(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			view := a.core.View()
			a.app.QueueUpdateDraw(func() {
				a.render(view)
			})
		}
	}
}

// render updates all panels. Runs on the tview event loop.
func (a *App) render(view core.View) {
	a.renderTabBar(view)
	a.renderList(view)
	a.renderPlayer(view.Session)
	a.renderStatus(view.Session)
}

func (a *App) renderTabBar(view core.View) {
	var sb strings.Builder
	for _, id := range []tabs.ID{tabs.Search, tabs.History, tabs.Favorites} {
		label := fmt.Sprintf(" %d:%s ", int(id)+1, id)
		if id == view.ActiveTab {
			sb.WriteString("[black:white]" + label + "[-:-]")
		} else {
			sb.WriteString("[gray]" + label + "[-]")
		}
	}

	text := sb.String()
	if text != a.lastTabBar {
		a.lastTabBar = text
		a.tabBar.SetText(text)
	}
}

func (a *App) renderList(view core.View) {
	var sb strings.Builder

	if len(view.Entries) == 0 {
		sb.WriteString("[gray]Nothing here. Press / to search.[-]")
	}

	for i, entry := range view.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}

		if i == view.Cursor {
			sb.WriteString("[black:white]")
		}

		marker := "  "
		if entry.Playing {
			marker = "[green]♪[-] "
			if i == view.Cursor {
				marker = "♪ "
			}
		}
		sb.WriteString(marker)

		title := runewidth.Truncate(entry.Track.Title, maxTitleWidth, "...")
		sb.WriteString(tview.Escape(title))

		if entry.Track.Uploader != "" {
			sb.WriteString("  [gray]" + tview.Escape(entry.Track.Uploader) + "[-]")
		}
		sb.WriteString("  " + entry.Track.FormatDuration())

		if entry.Liked {
			sb.WriteString("  [red]♥[-]")
		}

		if i == view.Cursor {
			sb.WriteString("[-:-]")
		}
	}

	text := sb.String()
	if text != a.lastList {
		a.lastList = text
		a.list.SetText(text)
	}
}

func (a *App) renderPlayer(snap session.Snapshot) {
	var text string

	switch snap.Status {
	case session.Stopped:
		text = "[gray]Stopped[-]"
	default:
		icon := "[green]▶[-]"
		if snap.Status == session.Paused {
			icon = "[yellow]⏸[-]"
		}

		title := ""
		if snap.Current != nil {
			title = runewidth.Truncate(snap.Current.Title, maxTitleWidth, "...")
		}

		_, _, width, _ := a.player.GetInnerRect()
		barWidth := width - 16
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		bar := buildProgressBar(snap.Position, snap.Duration, snap.HasDuration, a.lastBarWidth)
		durStr := "??:??"
		if snap.HasDuration {
			durStr = formatSeconds(snap.Duration)
		}

		text = fmt.Sprintf("%s [white::b]%s[-:-:-]\n%s %s %s",
			icon, tview.Escape(title), formatSeconds(snap.Position), bar, durStr)
	}

	if text != a.lastPlayer {
		a.lastPlayer = text
		a.player.SetText(text)
	}
}

func (a *App) renderStatus(snap session.Snapshot) {
	a.mu.Lock()
	flash := a.flash
	expired := time.Now().After(a.flashUntil)
	volume := a.volume
	a.mu.Unlock()

	text := fmt.Sprintf("[gray]1-3:tabs  /:search  enter:play  space:pause  s:stop  ←→:seek  l:like  d:del  c:clear  q:quit  vol:%d%%[-]", volume)
	if flash != "" && !expired {
		text = flash
	}

	if text != a.lastStatus {
		a.lastStatus = text
		a.status.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration float64, known bool, width int) string {
	if !known || duration <= 0 || width <= 0 {
		return "[gray]" + strings.Repeat("░", width) + "[-]"
	}

	progress := position / duration
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// formatSeconds formats a position as MM:SS or H:MM:SS for longer tracks
func formatSeconds(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	total := int(secs)
	hours := total / 3600
	minutes := total / 60 % 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
