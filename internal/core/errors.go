package core

import "errors"

var (
	// ErrAuthFailed is returned when credential verification rejects the
	// offered identity/secret pair.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNotAuthenticated is returned when a session tries to join without
	// having authenticated first.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrSessionClosed is returned when an operation targets a session that
	// has left the chat.
	ErrSessionClosed = errors.New("session closed")
)
