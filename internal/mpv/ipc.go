package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind identifies an asynchronous event from the player process.
type EventKind int

const (
	EventPosition EventKind = iota // Periodic time-pos tick
	EventDuration                  // Duration became known or changed
	EventPaused                    // Playback paused
	EventResumed                   // Playback resumed
	EventEnd                       // Current file ended
)

// Event is an asynchronous notification from the player process.
type Event struct {
	Kind   EventKind
	Value  float64 // Seconds, for EventPosition and EventDuration
	Reason string  // end-file reason ("eof", "stop", "error", ...), for EventEnd
}

// ipcMessage is the wire shape of everything mpv writes on the IPC socket,
// both command replies and asynchronous events.
type ipcMessage struct {
	Event     string          `json:"event"`
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Name      string          `json:"name"`
	Reason    string          `json:"reason"`
}

type response struct {
	err  string
	data json.RawMessage
}

// conn owns one IPC socket connection: it serializes command submissions,
// correlates replies by request_id, and fans asynchronous events out to
// the Events channel.
type conn struct {
	sock   net.Conn
	logger zerolog.Logger

	// reqMu ensures at most one command is in flight at a time so that
	// request/reply correlation stays trivial.
	reqMu sync.Mutex

	// mu guards nextID and pending.
	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan response

	events    chan Event
	done      chan struct{} // closed when the reader goroutine exits
	closeOnce sync.Once
}

func newConn(sock net.Conn, logger zerolog.Logger) *conn {
	c := &conn{
		sock:    sock,
		logger:  logger.With().Str("component", "ipc").Logger(),
		pending: make(map[int64]chan response),
		events:  make(chan Event, 32),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// request submits one command and blocks until its correlated reply, a
// timeout, or disconnection. Commands are mpv's command-array form,
// e.g. ("get_property", "time-pos").
func (c *conn) request(ctx context.Context, cmd ...any) (json.RawMessage, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(map[string]any{
		"command":    cmd,
		"request_id": id,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	if _, err := c.sock.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	select {
	case r := <-ch:
		if r.err != "" && r.err != "success" {
			return nil, CommandError(r.err)
		}
		return r.data, nil
	case <-c.done:
		return nil, ErrDisconnected
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// readLoop consumes the socket until it closes, routing replies to their
// waiters and events to the Events channel. The events channel is closed
// when the peer goes away, which subscribers treat as end of stream.
func (c *conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	scanner := bufio.NewScanner(c.sock)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("Unparseable ipc line")
			continue
		}

		if msg.Event != "" {
			c.dispatchEvent(msg)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- response{err: msg.Error, data: msg.Data}
		}
	}
}

func (c *conn) dispatchEvent(msg ipcMessage) {
	switch msg.Event {
	case "property-change":
		c.dispatchProperty(msg)
	case "end-file":
		c.deliver(Event{Kind: EventEnd, Reason: msg.Reason})
	}
}

func (c *conn) dispatchProperty(msg ipcMessage) {
	// Data is null while the property is unset (e.g. time-pos before the
	// stream has opened); those changes carry no information.
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return
	}

	switch msg.Name {
	case "time-pos":
		var pos float64
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			return
		}
		c.deliver(Event{Kind: EventPosition, Value: pos})
	case "duration":
		var dur float64
		if err := json.Unmarshal(msg.Data, &dur); err != nil {
			return
		}
		c.deliver(Event{Kind: EventDuration, Value: dur})
	case "pause":
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return
		}
		if paused {
			c.deliver(Event{Kind: EventPaused})
		} else {
			c.deliver(Event{Kind: EventResumed})
		}
	}
}

// deliver forwards an event to subscribers. Position ticks are dropped
// under backpressure; every other event kind is delivered.
func (c *conn) deliver(ev Event) {
	if ev.Kind == EventPosition {
		select {
		case c.events <- ev:
		default:
		}
		return
	}
	c.events <- ev
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.sock.Close()
	})
}

// awaitClosed blocks until the reader goroutine has exited or the grace
// period elapses.
func (c *conn) awaitClosed(grace time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(grace):
		return false
	}
}
