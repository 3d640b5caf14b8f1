// Package server wires configuration, storage and the HTTP API together
// and runs them until the process is asked to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/authn"
	"github.com/dmitrijs2005/reelkeeper/internal/server/config"
	"github.com/dmitrijs2005/reelkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/reelkeeper/internal/server/httpapi"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend *Backend
	server  *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	backend, err := OpenBackend(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher := NewHasher(c)
	store := credentials.NewStore(backend.TxManager, backend.Repos, hasher, logger)

	a, err := authn.NewAuthenticator(backend.TxManager, backend.Repos, hasher, store, c, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	v := authn.NewVerifier(backend.TxManager, backend.Repos, store, c, logger)

	return &App{
		config:  c,
		logger:  logger,
		backend: backend,
		server:  httpapi.NewServer(c.EndpointAddrHTTP, logger, a, v),
	}, nil
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "memory_store", app.config.UsesMemoryStore())

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", runErr)
	}

	if err := app.backend.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown", "error", err)
	}

	app.logger.Info(context.Background(), "App stopped")
	return runErr
}
