package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" {
		t.Fatalf("unexpected user: %+v", created)
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if got.ID != created.ID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// Usernames are unique.
	if _, err := s.CreateUser(ctx, "alice", "other"); err == nil {
		t.Fatal("expected duplicate username to fail")
	}
}

func TestAppendMessageUnknownUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, "ghost", "boo"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	// All rows share one CURRENT_TIMESTAMP second; ordering must fall back to
	// insertion order.
	for i := 0; i < 25; i++ {
		if err := s.AppendMessage(ctx, "alice", fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("failed to append message %d: %v", i, err)
		}
	}

	messages, err := s.RecentMessages(ctx, 20)
	if err != nil {
		t.Fatalf("failed to fetch messages: %v", err)
	}
	if len(messages) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(messages))
	}

	// Most recent first: msg-24 down to msg-5.
	for i, msg := range messages {
		want := fmt.Sprintf("msg-%d", 24-i)
		if msg.Content != want {
			t.Fatalf("expected %q at index %d, got %q", want, i, msg.Content)
		}
		if msg.Author != "alice" {
			t.Fatalf("unexpected author %q", msg.Author)
		}
	}
}

func TestRecentMessagesEmptyLog(t *testing.T) {
	s := newTestStore(t)

	messages, err := s.RecentMessages(context.Background(), 20)
	if err != nil {
		t.Fatalf("failed to fetch messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty log, got %d messages", len(messages))
	}
}
