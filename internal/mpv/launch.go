package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kmahone/strum/internal/track"
)

const (
	// The child process needs time to create its listening socket after
	// spawn; we retry the dial with a short backoff until this budget
	// is exhausted.
	dialAttempts = 40
	dialBackoff  = 50 * time.Millisecond

	// quitGrace bounds both the graceful quit command on close and the
	// wait for the process to exit before it is killed.
	quitGrace = 2 * time.Second
)

// Session is an open control channel to a spawned mpv process. At most one
// session is alive at a time; the playback state machine owns that rule.
type Session struct {
	cmd    *exec.Cmd
	conn   *conn
	socket string
	logger zerolog.Logger

	waitErr   chan error
	closeOnce sync.Once
}

// Open spawns mpv for the given track and establishes the IPC endpoint.
// Returns ErrSpawnFailed if the executable cannot be started and
// ErrEndpointTimeout if the socket never becomes connectable.
func Open(ctx context.Context, binary string, t track.Track, logger zerolog.Logger) (*Session, error) {
	socket := filepath.Join(os.TempDir(), "strum-mpv-"+uuid.NewString())

	cmd := exec.Command(binary,
		"--no-video",
		"--really-quiet",
		"--no-terminal",
		"--input-ipc-server="+socket,
		t.Locator,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	sock, err := dialEndpoint(ctx, socket, waitErr)
	if err != nil {
		cmd.Process.Kill()
		os.Remove(socket)
		return nil, err
	}

	s := &Session{
		cmd:     cmd,
		conn:    newConn(sock, logger),
		socket:  socket,
		logger:  logger.With().Str("component", "mpv").Logger(),
		waitErr: waitErr,
	}

	if err := s.observeProperties(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Debug().
		Str("socket", socket).
		Str("title", t.Title).
		Msg("Control channel established")
	return s, nil
}

// dialEndpoint connects to the IPC socket, retrying while the child is
// still setting it up. Bails out early if the child dies first.
func dialEndpoint(ctx context.Context, socket string, waitErr <-chan error) (net.Conn, error) {
	var lastErr error
	for i := 0; i < dialAttempts; i++ {
		sock, err := net.DialTimeout("unix", socket, dialBackoff)
		if err == nil {
			return sock, nil
		}
		lastErr = err

		select {
		case err := <-waitErr:
			return nil, fmt.Errorf("%w: process exited during startup: %v", ErrSpawnFailed, err)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrEndpointTimeout, lastErr)
}

// observeProperties registers for the asynchronous property-change events
// the session relies on: position ticks, duration, and pause state.
func (s *Session) observeProperties(ctx context.Context) error {
	for i, prop := range []string{"time-pos", "duration", "pause"} {
		if _, err := s.request(ctx, "observe_property", i+1, prop); err != nil {
			return fmt.Errorf("observe %s: %w", prop, err)
		}
	}
	return nil
}

// Events returns the asynchronous event stream for this session. The
// channel is closed when the control channel closes; it is not restartable
// except by opening a new session.
func (s *Session) Events() <-chan Event {
	return s.conn.events
}

// Socket returns the IPC endpoint path, shared with the presence sidecar.
func (s *Session) Socket() string {
	return s.socket
}

// Close shuts the player down: a graceful quit first, then a kill after
// the grace period. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), quitGrace)
		_, _ = s.conn.request(ctx, "quit")
		cancel()

		s.conn.close()
		s.conn.awaitClosed(quitGrace)

		select {
		case <-s.waitErr:
		case <-time.After(quitGrace):
			s.logger.Warn().Msg("Player did not exit, killing")
			s.cmd.Process.Kill()
			<-s.waitErr
		}

		os.Remove(s.socket)
		s.logger.Debug().Msg("Control channel closed")
	})
}
