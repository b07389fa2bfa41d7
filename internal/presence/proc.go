package presence

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// exitGrace bounds the wait for the sidecar to exit after its stdin closes.
const exitGrace = 2 * time.Second

// wireEvent is the line protocol spoken to the sidecar's stdin. The core
// only ever writes; replies are never read.
type wireEvent struct {
	Event string `json:"event"`
	Title string `json:"title,omitempty"`
}

// procTransport runs the sidecar as a child process, handing it the player
// IPC socket path as an argument and feeding it JSON lines on stdin.
type procTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	waitErr chan error
}

func launchProcess(command []string, socket string) (transport, error) {
	args := append(append([]string(nil), command[1:]...), socket)
	cmd := exec.Command(command[0], args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn sidecar: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	return &procTransport{cmd: cmd, stdin: stdin, waitErr: waitErr}, nil
}

func (p *procTransport) Send(ev Event) error {
	we := wireEvent{Event: "stopped"}
	if ev.Kind == KindNowPlaying {
		we = wireEvent{Event: "now_playing", Title: ev.Title}
	}
	line, err := json.Marshal(we)
	if err != nil {
		return err
	}
	_, err = p.stdin.Write(append(line, '\n'))
	return err
}

func (p *procTransport) Close() error {
	p.stdin.Close()
	select {
	case err := <-p.waitErr:
		return err
	case <-time.After(exitGrace):
		p.cmd.Process.Kill()
		return <-p.waitErr
	}
}
