package core

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/d-a-s-h-o/nojs-chat/internal/store"
)

// CredentialVerifier checks an offered identity/secret pair against the
// credential store. Implemented by auth.Service.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*store.User, error)
}

// Hub is the interactive chat engine: it owns the session registry, fans
// messages out to every joined session, and keeps the live view in sync with
// the durable message log.
type Hub struct {
	verifier     CredentialVerifier
	messages     store.MessageStore
	registry     *Registry
	log          zerolog.Logger
	historyLimit int
	nextID       atomic.Int64
}

// NewHub constructs the chat engine. verifier and messages may be nil in
// tests that exercise only registry and broadcast behavior.
func NewHub(verifier CredentialVerifier, messages store.MessageStore, logger *zerolog.Logger, historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Hub{
		verifier:     verifier,
		messages:     messages,
		registry:     NewRegistry(),
		log:          lg,
		historyLimit: historyLimit,
	}
}

// NewSession creates a session for a freshly opened connection. The session
// starts in StateConnecting and holds no registry entry until Join.
func (h *Hub) NewSession() *Session {
	s := &Session{ID: h.nextID.Add(1)}
	return s
}

// Authenticate validates the offered credentials and advances the session to
// StateAuthenticated. A rejected credential leaves the session in
// StateConnecting; it never reaches the registry.
func (h *Hub) Authenticate(ctx context.Context, s *Session, username, password string) error {
	if s.State() != StateConnecting {
		return ErrSessionClosed
	}
	if h.verifier == nil {
		return ErrAuthFailed
	}

	user, err := h.verifier.Verify(ctx, username, password)
	if err != nil {
		h.log.Debug().Int64("session_id", s.ID).Str("username", username).Msg("credential rejected")
		return ErrAuthFailed
	}

	s.Identity = user.Username
	if !s.transition(StateConnecting, StateAuthenticated) {
		return ErrSessionClosed
	}
	return nil
}

// Join registers an authenticated session, replays recent history to its own
// sink, and announces the arrival to everyone currently joined (including the
// new session itself). The sink is borrowed from the transport for the rest
// of the session's lifetime.
func (h *Hub) Join(ctx context.Context, s *Session, sink Sink) error {
	if s.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	s.sink = sink

	// History is fetched before the session can receive live broadcasts; a
	// message appended between the fetch and the registry insert arrives
	// live instead.
	history := h.recentHistory(ctx)

	if !s.transition(StateAuthenticated, StateJoined) {
		return ErrSessionClosed
	}
	h.registry.Insert(s)

	for _, msg := range history {
		if err := s.send(renderMessage(msg.Author, msg.Content)); err != nil {
			h.log.Warn().Err(err).Int64("session_id", s.ID).Msg("history replay write failed")
			break
		}
	}

	h.log.Info().Int64("session_id", s.ID).Str("identity", s.Identity).Int("joined", h.registry.Len()).Msg("session joined")
	h.broadcast(renderJoined(s.Identity))
	return nil
}

// recentHistory returns up to historyLimit messages, oldest first. A store
// fault degrades to an empty history rather than blocking the join.
func (h *Hub) recentHistory(ctx context.Context) []*store.Message {
	if h.messages == nil {
		return nil
	}
	msgs, err := h.messages.RecentMessages(ctx, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("history fetch failed")
		return nil
	}
	// Store order is newest first; replay reads oldest-of-window first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

// HandleLine interprets one line of input from a joined session. Returns
// ErrSessionClosed once the session has left the chat (quit command or an
// earlier close); the transport should then tear the connection down.
func (h *Hub) HandleLine(ctx context.Context, s *Session, line string) error {
	if s.State() != StateJoined {
		return ErrSessionClosed
	}

	msg := strings.TrimSpace(line)
	if msg == "" {
		return nil
	}

	switch msg {
	case "/help":
		// Help goes to the issuing sink only, never broadcast.
		for _, l := range helpLines {
			if err := s.send(l); err != nil {
				h.log.Warn().Err(err).Int64("session_id", s.ID).Msg("help write failed")
				break
			}
		}
		return nil
	case "/quit":
		h.Leave(s)
		return ErrSessionClosed
	}

	if h.messages != nil {
		if err := h.messages.AppendMessage(ctx, s.Identity, msg); err != nil {
			// Live chat is prioritized over durability: the message is still
			// broadcast, and the append is not retried.
			h.log.Error().Err(err).Str("identity", s.Identity).Msg("message append failed")
		}
	}

	h.broadcast(renderMessage(s.Identity, msg))
	return nil
}

// Leave drives the session through its close path: remove the registry entry,
// then announce the departure to the remaining sessions. Safe to call from
// any disconnect path (quit, EOF, transport error) and idempotent, so a quit
// racing a connection teardown announces exactly once.
func (h *Hub) Leave(s *Session) {
	if !s.transition(StateJoined, StateClosed) {
		// Never joined (or already closed): nothing to remove, nothing to
		// announce, but the session must still end up terminal.
		s.state.Store(int32(StateClosed))
		return
	}

	h.registry.Remove(s.ID)
	h.log.Info().Int64("session_id", s.ID).Str("identity", s.Identity).Int("joined", h.registry.Len()).Msg("session left")
	h.broadcast(renderLeft(s.Identity))
}

// broadcast fans one rendered line out to every registered sink, best effort.
// Membership is snapshotted under the registry lock and the sends happen
// outside it, so a slow or dead sink never stalls another session's join,
// leave, or delivery. A failed send is swallowed at that sink; removal only
// ever happens through the owning session's own close path.
func (h *Hub) broadcast(line string) {
	for _, s := range h.registry.Snapshot() {
		if err := s.send(line); err != nil {
			h.log.Debug().Err(err).Int64("session_id", s.ID).Msg("broadcast write failed")
		}
	}
}

// Registered reports how many sessions are currently joined.
func (h *Hub) Registered() int {
	return h.registry.Len()
}
