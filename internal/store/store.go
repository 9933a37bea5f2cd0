package store

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a persisted chat message. Author carries the username of
// the account that wrote it, resolved at query time.
type Message struct {
	ID        int64
	Author    string
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore handles the append-only message log.
type MessageStore interface {
	// AppendMessage appends a message attributed to username.
	AppendMessage(ctx context.Context, username, content string) error

	// RecentMessages returns up to limit messages, most recent first.
	// Ties on timestamp are broken by insertion order.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
