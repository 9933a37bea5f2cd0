package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/d-a-s-h-o/nojs-chat/internal/store"
)

// memSink records every line pushed to it. Safe for concurrent use.
type memSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (m *memSink) SendLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *memSink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *memSink) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memSink) Contains(line string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l == line {
			return true
		}
	}
	return false
}

// blockingSink parks every SendLine until released, once armed. It starts
// disarmed so the owning session can join normally.
type blockingSink struct {
	armed   atomic.Bool
	release chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{release: make(chan struct{})}
}

func (b *blockingSink) SendLine(string) error {
	if b.armed.Load() {
		<-b.release
	}
	return nil
}

// memLog is an in-memory store.MessageStore with injectable faults.
type memLog struct {
	mu        sync.Mutex
	msgs      []*store.Message
	appendErr error
	fetchErr  error
}

func (m *memLog) AppendMessage(_ context.Context, username, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.msgs = append(m.msgs, &store.Message{
		ID:      int64(len(m.msgs) + 1),
		Author:  username,
		Content: content,
	})
	return nil
}

func (m *memLog) RecentMessages(_ context.Context, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]*store.Message, 0, limit)
	for i := len(m.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.msgs[i])
	}
	return out, nil
}

// stubVerifier accepts any username with password "secret".
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, username, password string) (*store.User, error) {
	if password != "secret" {
		return nil, errors.New("invalid credentials")
	}
	return &store.User{Username: username}, nil
}

func newTestHub(messages store.MessageStore) *Hub {
	return NewHub(stubVerifier{}, messages, nil, 20)
}

// joinSession authenticates and joins a session under the given identity.
func joinSession(t *testing.T, hub *Hub, identity string, sink Sink) *Session {
	t.Helper()

	ctx := context.Background()
	s := hub.NewSession()
	if err := hub.Authenticate(ctx, s, identity, "secret"); err != nil {
		t.Fatalf("authenticate %s: %v", identity, err)
	}
	if err := hub.Join(ctx, s, sink); err != nil {
		t.Fatalf("join %s: %v", identity, err)
	}
	return s
}
