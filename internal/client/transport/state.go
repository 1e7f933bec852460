package transport

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrNotReady is returned by Send when the connection is not open. Callers drop the frame.
var ErrNotReady = errors.New("connection not open")

// ConnectionError reports an unreachable endpoint or a connection lost after it was open.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
