package presence

import (
	"sync"

	"github.com/rs/zerolog"
)

// Kind is the type of presence notification.
type Kind int

const (
	KindNowPlaying Kind = iota
	KindStopped
)

// Event is a presence notification. Socket carries the player IPC endpoint
// the sidecar may monitor for richer metadata.
type Event struct {
	Kind   Kind
	Title  string
	Socket string
}

// State is the sidecar lifecycle state.
type State int

const (
	Absent   State = iota // Feature disabled, executable missing, or launch failed
	Starting              // Spawned, not yet confirmed writable
	Running
	Dead // Retry budget exhausted; permanent for the process lifetime
)

// maxFailures is the consecutive send-failure budget before the sidecar
// is declared dead and never contacted again.
const maxFailures = 3

// transport carries events to a running sidecar process.
type transport interface {
	Send(Event) error
	Close() error
}

// Supervisor manages the optional presence-broadcasting sidecar. It is
// strictly best-effort: Notify never blocks the caller and no failure is
// ever surfaced beyond the log.
type Supervisor struct {
	logger  zerolog.Logger
	command []string
	launch  func(command []string, socket string) (transport, error)

	// mailbox holds at most the latest pending event; newer events
	// supersede older ones rather than queueing behind them.
	mailbox chan Event
	stop    chan struct{}
	done    chan struct{}

	stopOnce sync.Once

	mu       sync.Mutex
	state    State
	tr       transport
	failures int
	terminal bool // set once the sidecar is Dead or permanently unlaunchable
}

// New creates a Supervisor for the given sidecar command line. An empty
// command disables the feature; Notify becomes a no-op.
func New(command []string, logger zerolog.Logger) *Supervisor {
	s := &Supervisor{
		logger:  logger.With().Str("component", "presence").Logger(),
		command: command,
		launch:  launchProcess,
		mailbox: make(chan Event, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// NowPlaying notifies the sidecar that a track started.
func (s *Supervisor) NowPlaying(title, socket string) {
	s.Notify(Event{Kind: KindNowPlaying, Title: title, Socket: socket})
}

// Stopped notifies the sidecar that playback stopped.
func (s *Supervisor) Stopped() {
	s.Notify(Event{Kind: KindStopped})
}

// Notify hands an event to the supervisor and returns immediately. If an
// event is already pending it is superseded, not queued behind.
func (s *Supervisor) Notify(ev Event) {
	if len(s.command) == 0 {
		return
	}
	s.mu.Lock()
	terminal := s.terminal
	s.mu.Unlock()
	if terminal {
		return
	}

	for {
		select {
		case s.mailbox <- ev:
			return
		default:
		}
		// Mailbox full: drop the superseded event and retry.
		select {
		case <-s.mailbox:
		default:
		}
	}
}

// State returns the current sidecar lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop tears the sidecar down. Called before the control channel closes
// so the sidecar never reports a stale "now playing" past player exit.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// run is the single goroutine that owns the transport. Launching and
// sending both happen here, so playback never waits on sidecar readiness.
func (s *Supervisor) run() {
	defer close(s.done)
	defer s.closeTransport()

	for {
		select {
		case <-s.stop:
			return
		case ev := <-s.mailbox:
			s.handle(ev)
		}
	}
}

func (s *Supervisor) handle(ev Event) {
	s.mu.Lock()
	state := s.state
	tr := s.tr
	s.mu.Unlock()

	if state == Dead {
		return
	}

	if tr == nil {
		// Spawn lazily on the first now-playing transition. A stopped
		// notification with no sidecar running carries no information.
		if ev.Kind != KindNowPlaying {
			return
		}
		s.setState(Starting)
		launched, err := s.launch(s.command, ev.Socket)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Presence sidecar unavailable")
			s.mu.Lock()
			s.state = Absent
			s.terminal = true
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		s.tr = launched
		s.state = Running
		tr = launched
		s.mu.Unlock()
		s.logger.Info().Msg("Presence sidecar started")

		// An event that arrived while the sidecar was starting supersedes
		// the one that triggered the launch.
		select {
		case newer := <-s.mailbox:
			ev = newer
		default:
		}
	}

	if err := tr.Send(ev); err != nil {
		s.mu.Lock()
		s.failures++
		failures := s.failures
		dead := failures >= maxFailures
		if dead {
			s.state = Dead
			s.terminal = true
		}
		s.mu.Unlock()
		s.logger.Warn().Err(err).Int("failures", failures).Msg("Presence send failed")
		if dead {
			s.logger.Warn().Msg("Presence sidecar declared dead")
			s.closeTransport()
		}
		return
	}

	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) closeTransport() {
	s.mu.Lock()
	tr := s.tr
	s.tr = nil
	s.mu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Sidecar close")
		}
	}
}
