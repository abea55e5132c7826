package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openshelf/openshelf/internal/auth/hook"
	"github.com/openshelf/openshelf/internal/auth/metrics"
	"github.com/openshelf/openshelf/internal/auth/provider"
	"github.com/openshelf/openshelf/internal/auth/service"
	"github.com/openshelf/openshelf/internal/auth/store"
	"github.com/openshelf/openshelf/internal/auth/store/drivers/sqlite"
	"github.com/openshelf/openshelf/pkg/cryptox"
	"github.com/openshelf/openshelf/pkg/jwtx"
	"github.com/openshelf/openshelf/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the auth core together: store, provider registry, token
// issuer, rate limiter and housekeeping. The HTTP layer consuming the
// AuthService lives outside this module.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	Auth         *service.AuthService
	housekeeping *service.HousekeepingService
}

// New creates an Application with all dependencies initialized. The hook
// emitter is injected so deployments with an extension dispatcher can pass
// theirs; nil falls back to a no-op emitter.
func New(cfg Config, hooks hook.Emitter) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.Secret == "" {
		return nil, errors.New("AUTH_SECRET must be set")
	}
	if hooks == nil {
		hooks = hook.Noop{}
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.db = db

	signer, err := jwtx.NewSigner([]byte(cfg.Secret), cfg.Issuer)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	registry := provider.NewRegistry(cfg.DefaultProvider)
	if err := registry.Register(provider.LocalName, provider.Local{}); err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics.Register()

	app.Auth = &service.AuthService{
		Store:        app.db,
		Providers:    registry,
		Hooks:        hooks,
		SecondFactor: service.TOTP{},
		Limiter:      service.NewLoginLimiter(cfg.RateLimitWindow),
		Stall:        service.Stall{Floor: cfg.LoginStallFloor},
		Signer:       signer,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
	}
	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, cfg.HousekeepingInterval)

	return app, nil
}

// Run starts housekeeping and blocks until a shutdown signal arrives.
func (app *Application) Run() error {
	app.housekeeping.Start()
	app.logger.Info("auth core started", "version", BuildVersion)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)

	return app.Shutdown()
}

// Shutdown stops background work and closes the store.
func (app *Application) Shutdown() error {
	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	app.logger.Info("auth core stopped")
	return nil
}

// Ping reports whether the backing store is reachable.
func (app *Application) Ping(ctx context.Context) error {
	return app.db.Ping(ctx)
}
