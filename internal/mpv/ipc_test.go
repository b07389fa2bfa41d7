package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakePlayer is the peer end of an IPC connection, scripted per test.
// handler returns the raw reply line for a command, or nil for no reply.
type fakePlayer struct {
	conn    net.Conn
	handler func(cmd []any, id int64) []byte
}

func newTestConn(t *testing.T, handler func(cmd []any, id int64) []byte) (*conn, *fakePlayer) {
	t.Helper()
	client, server := net.Pipe()
	peer := &fakePlayer{conn: server, handler: handler}
	go peer.serve()

	c := newConn(client, zerolog.Nop())
	t.Cleanup(func() {
		c.close()
		server.Close()
	})
	return c, peer
}

func (p *fakePlayer) serve() {
	scanner := bufio.NewScanner(p.conn)
	for scanner.Scan() {
		var req struct {
			Command   []any `json:"command"`
			RequestID int64 `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if p.handler == nil {
			continue
		}
		if reply := p.handler(req.Command, req.RequestID); reply != nil {
			p.conn.Write(append(reply, '\n'))
		}
	}
}

func (p *fakePlayer) push(line string) {
	p.conn.Write([]byte(line + "\n"))
}

func reply(id int64, errStr string, data string) []byte {
	if data == "" {
		return []byte(fmt.Sprintf(`{"request_id":%d,"error":%q}`, id, errStr))
	}
	return []byte(fmt.Sprintf(`{"request_id":%d,"error":%q,"data":%s}`, id, errStr, data))
}

func TestRequestReplyCorrelation(t *testing.T) {
	c, _ := newTestConn(t, func(cmd []any, id int64) []byte {
		if len(cmd) != 2 || cmd[0] != "get_property" || cmd[1] != "time-pos" {
			t.Errorf("unexpected command: %v", cmd)
		}
		return reply(id, "success", "42.5")
	})

	data, err := c.request(context.Background(), "get_property", "time-pos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var pos float64
	if err := json.Unmarshal(data, &pos); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if pos != 42.5 {
		t.Errorf("position = %v, want 42.5", pos)
	}
}

func TestRequestCommandError(t *testing.T) {
	c, _ := newTestConn(t, func(cmd []any, id int64) []byte {
		return reply(id, "property unavailable", "")
	})

	_, err := c.request(context.Background(), "get_property", "duration")
	var ce CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if string(ce) != "property unavailable" {
		t.Errorf("error detail = %q", ce)
	}
}

func TestRequestTimeout(t *testing.T) {
	c, _ := newTestConn(t, nil) // peer never replies

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.request(ctx, "get_property", "time-pos")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRequestDisconnected(t *testing.T) {
	c, peer := newTestConn(t, nil)
	peer.conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.request(ctx, "cycle", "pause")
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestEventStream(t *testing.T) {
	c, peer := newTestConn(t, nil)

	peer.push(`{"event":"property-change","id":1,"name":"time-pos","data":12.25}`)
	peer.push(`{"event":"property-change","id":3,"name":"pause","data":true}`)
	peer.push(`{"event":"property-change","id":3,"name":"pause","data":false}`)
	peer.push(`{"event":"property-change","id":2,"name":"duration","data":180.0}`)
	peer.push(`{"event":"end-file","reason":"eof"}`)

	want := []Event{
		{Kind: EventPosition, Value: 12.25},
		{Kind: EventPaused},
		{Kind: EventResumed},
		{Kind: EventDuration, Value: 180},
		{Kind: EventEnd, Reason: "eof"},
	}
	for i, w := range want {
		select {
		case got := <-c.events:
			if got != w {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestNullPropertyIgnored(t *testing.T) {
	c, peer := newTestConn(t, nil)

	// mpv reports null for time-pos before the stream opens.
	peer.push(`{"event":"property-change","id":1,"name":"time-pos","data":null}`)
	peer.push(`{"event":"end-file","reason":"stop"}`)

	select {
	case got := <-c.events:
		if got.Kind != EventEnd {
			t.Errorf("expected EventEnd first, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventsClosedOnDisconnect(t *testing.T) {
	c, peer := newTestConn(t, nil)
	peer.conn.Close()

	select {
	case _, ok := <-c.events:
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after peer disconnect")
	}
}
