// Package server initializes and runs the gateway server.
// It opens the user registry, wires the services together, handles graceful
// shutdown, and starts the HTTP server for the browser frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkrutov/termgate/internal/logging"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/mkrutov/termgate/internal/server/httpapi"
	"github.com/mkrutov/termgate/internal/server/shared/db"
	"github.com/mkrutov/termgate/internal/server/terminal"
	"github.com/mkrutov/termgate/internal/server/tools"
	"github.com/mkrutov/termgate/internal/server/users"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	manager     db.RepositoryManager
	userService *users.Service
	supervisor  *terminal.Supervisor
	api         *httpapi.API
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("data dir init error: %w", err)
	}

	m, err := db.NewSQLiteRepositoryManager(cfg.RegistryDSN())
	if err != nil {
		return nil, fmt.Errorf("registry init error: %w", err)
	}

	us := users.NewService(m.Users(), cfg)
	pv := tools.NewProvisioner(cfg, logger)
	sup := terminal.NewSupervisor(us, pv, cfg, logger)
	api := httpapi.NewAPI(us, sup, cfg, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		manager:     m,
		userService: us,
		supervisor:  sup,
		api:         api,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.ListenAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.ListenAddr,
		Handler: app.api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		app.logger.Error(ctx, "server error", "error", runErr)
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
	}

	// Open websocket sessions hold child processes; reap them before exit.
	app.supervisor.Registry().KillAll()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(shutdownCtx, "registry close error", "error", err)
	}

	app.logger.Info(shutdownCtx, "server stopped")
	return runErr
}
