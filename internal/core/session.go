package core

import "sync/atomic"

// Sink delivers one line of text to a remote participant. It is owned by the
// transport and borrowed by the core for the session's lifetime. SendLine must
// be safe for concurrent use; a returned error means this sink only is broken.
type Sink interface {
	SendLine(line string) error
}

// SessionState tracks where a session is in its lifecycle.
type SessionState int32

const (
	// StateConnecting is the initial state before credential verification.
	StateConnecting SessionState = iota
	// StateAuthenticated means credentials were accepted but the session has
	// not yet joined the chat.
	StateAuthenticated
	// StateJoined means the session is registered and receiving broadcasts.
	StateJoined
	// StateClosed is terminal.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live interactive connection. IDs are process-unique and
// never reused; Identity is set once during authentication and never mutated
// afterward.
type Session struct {
	ID       int64
	Identity string

	sink  Sink
	state atomic.Int32
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// transition moves the session from one state to the next atomically.
// Returns false if the session was not in the expected state, which makes
// close idempotent and keeps racing paths from double-firing.
func (s *Session) transition(from, to SessionState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// send pushes one line to the session's own sink.
func (s *Session) send(line string) error {
	return s.sink.SendLine(line)
}
