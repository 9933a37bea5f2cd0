package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gossh "golang.org/x/crypto/ssh"

	"github.com/d-a-s-h-o/nojs-chat/internal/config"
	"github.com/d-a-s-h-o/nojs-chat/internal/core"
)

// ctrlC is the interrupt byte; receiving it drives the session's close path.
const ctrlC = 0x03

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("ssh server closed")

// Server terminates SSH connections and bridges them to the chat engine: it
// negotiates credentials through the hub, frames channel bytes into input
// lines, and hands the per-connection sink to the broadcast path.
type Server struct {
	hub      *core.Hub
	addr     string
	hostKey  gossh.Signer
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer builds the SSH transport. The host key is loaded from
// cfg.HostKeyPath, generated on first start.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) (*Server, error) {
	hostKey, err := loadOrCreateHostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("host key: %w", err)
	}

	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}

	return &Server{
		hub:      hub,
		addr:     cfg.SSHAddr,
		hostKey:  hostKey,
		log:      lg,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Listen binds the TCP listener without accepting yet.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown. One goroutine per connection.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("ssh server: Serve before Listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(conn)
		}()
	}
}

// ListenAndServe binds the listener and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown closes the listener and every live connection, then waits for the
// per-connection goroutines to drain or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// handleConn runs the SSH handshake and serves the first session channel.
// Each connection owns exactly one core session; the session never outlives
// the connection.
func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()

	logger := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", nc.RemoteAddr().String()).
		Logger()

	sess := s.hub.NewSession()
	defer s.hub.Leave(sess)

	serverConn, chans, reqs, err := gossh.NewServerConn(nc, s.serverConfig(sess))
	if err != nil {
		logger.Debug().Err(err).Msg("ssh handshake failed")
		return
	}
	defer serverConn.Close()
	logger.Info().Str("user", serverConn.User()).Int64("session_id", sess.ID).Msg("ssh connection established")

	go gossh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(gossh.UnknownChannelType, "unsupported channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			logger.Warn().Err(err).Msg("accept session channel failed")
			return
		}
		go serviceRequests(requests)

		s.serveSession(logger, sess, channel)
		return
	}
}

// serverConfig builds a per-connection handshake config whose password
// callback drives the session's Connecting -> Authenticated transition. A
// rejected credential yields a generic failure with no hint which field was
// wrong.
func (s *Server) serverConfig(sess *core.Session) *gossh.ServerConfig {
	conf := &gossh.ServerConfig{
		PasswordCallback: func(meta gossh.ConnMetadata, password []byte) (*gossh.Permissions, error) {
			if err := s.hub.Authenticate(context.Background(), sess, meta.User(), string(password)); err != nil {
				return nil, errors.New("access denied")
			}
			return nil, nil
		},
	}
	conf.AddHostKey(s.hostKey)
	return conf
}

// serviceRequests answers the channel requests an interactive client sends.
func serviceRequests(in <-chan *gossh.Request) {
	for req := range in {
		switch req.Type {
		case "shell", "pty-req", "env", "window-change":
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

// serveSession joins the authenticated session and pumps input lines into the
// command interpreter until quit, interrupt, EOF, or a transport error.
func (s *Server) serveSession(logger zerolog.Logger, sess *core.Session, ch gossh.Channel) {
	defer ch.Close()

	sink := newChannelSink(ch)
	go sink.run()
	defer sink.close()

	// Clear screen and greet, as the interactive protocol does.
	sink.raw("\x1b[2J\x1b[H")
	sink.raw(fmt.Sprintf("Welcome, %s! Type /help for commands.\r\n", sess.Identity))

	ctx := context.Background()
	if err := s.hub.Join(ctx, sess, sink); err != nil {
		logger.Warn().Err(err).Int64("session_id", sess.ID).Msg("join failed")
		return
	}
	defer s.hub.Leave(sess)

	reader := bufio.NewReader(ch)
	var line []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			// EOF or transport fault: close path, contained to this session.
			return
		}

		switch b {
		case ctrlC:
			return
		case '\r', '\n':
			text := string(line)
			line = line[:0]
			if strings.TrimSpace(text) == "" {
				sink.prompt()
				continue
			}
			if err := s.hub.HandleLine(ctx, sess, text); err != nil {
				return
			}
		default:
			line = append(line, b)
		}
	}
}
