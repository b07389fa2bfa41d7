package mpv

import "errors"

// Launch failures. Fatal to the attempted play, not to the process.
var (
	ErrSpawnFailed     = errors.New("mpv: failed to spawn player process")
	ErrEndpointTimeout = errors.New("mpv: ipc endpoint never became connectable")
)

// Channel failures on an established session.
var (
	ErrDisconnected = errors.New("mpv: player process disconnected")
	ErrTimeout      = errors.New("mpv: command timed out")
)

// ErrNoSession is returned when a command is issued with no track loaded.
var ErrNoSession = errors.New("no active playback session")

// CommandError is a failure mpv reported for a command it did receive,
// e.g. "property unavailable" for a duration that is not known yet.
type CommandError string

func (e CommandError) Error() string {
	return "mpv: " + string(e)
}
