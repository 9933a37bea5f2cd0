package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/d-a-s-h-o/nojs-chat/internal/auth"
	"github.com/d-a-s-h-o/nojs-chat/internal/config"
	"github.com/d-a-s-h-o/nojs-chat/internal/core"
	"github.com/d-a-s-h-o/nojs-chat/internal/store"
	"github.com/d-a-s-h-o/nojs-chat/internal/store/sqlite"
	transporthttp "github.com/d-a-s-h-o/nojs-chat/internal/transport/http"
	transportssh "github.com/d-a-s-h-o/nojs-chat/internal/transport/ssh"
)

// App wires the store, chat engine, and both transports together.
type App struct {
	httpServer      *stdhttp.Server
	sshServer       *transportssh.Server
	store           store.Store
	hub             *core.Hub
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(st)
	jwtConfig := &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: "nojs-chat",
		TTL:    24 * time.Hour,
	}

	hub := core.NewHub(authService, st, logger, cfg.HistoryLimit)

	sshServer, err := transportssh.NewServer(hub, cfg, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init ssh server: %w", err)
	}

	httpServer := transporthttp.NewServer(st, authService, jwtConfig, cfg, logger)

	return &App{
		httpServer:      httpServer,
		sshServer:       sshServer,
		store:           st,
		hub:             hub,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts both servers and blocks until context cancellation or a fatal
// error from either transport.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 2)

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
			return
		}
		serverErr <- nil
	}()

	go func() {
		if err := a.sshServer.ListenAndServe(); err != nil && !errors.Is(err, transportssh.ErrServerClosed) {
			serverErr <- fmt.Errorf("ssh server: %w", err)
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.shutdown(context.Background())
		return err
	case <-ctx.Done():
		return a.shutdown(context.Background())
	}
}

func (a *App) shutdown(parent context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(parent, a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down")

	var firstErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown failed")
		firstErr = err
	}
	if err := a.sshServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("ssh shutdown failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		if firstErr == nil {
			firstErr = err
		}
	} else {
		a.log.Info().Msg("store closed")
	}

	return firstErr
}
