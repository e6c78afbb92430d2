package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prisken/hubstore/internal/config"
	"github.com/prisken/hubstore/pkg/auth"
	"github.com/prisken/hubstore/pkg/lifecycle"
	"github.com/prisken/hubstore/pkg/registry"
	"github.com/prisken/hubstore/pkg/store"
	"github.com/prisken/hubstore/pkg/tenant"
)

// app wires the lifecycle manager together for one command invocation.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *registry.Store
	tenants      *tenant.Manager
	orchestrator *lifecycle.Orchestrator
	gateway      *store.Gateway
	passwords    *auth.PasswordService
	sessions     *auth.SessionService
}

func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	reg, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		return nil, fmt.Errorf("open registry store: %w", err)
	}

	tenants := tenant.NewManager(tenant.Config{
		DataDir:     cfg.DataDir,
		IdleTimeout: cfg.TenantIdleTimeout,
		Logger:      logger,
	})

	a := &app{
		cfg:          cfg,
		logger:       logger,
		registry:     reg,
		tenants:      tenants,
		orchestrator: lifecycle.NewOrchestrator(reg, tenants, logger),
		gateway:      store.NewGateway(reg, tenants),
		passwords:    auth.NewPasswordService(reg.Users()),
	}
	if cfg.HasSessions() {
		a.sessions = auth.NewSessionService(auth.SessionConfig{
			AccessTokenTTL: cfg.AccessTokenTTL,
			JWTSecret:      []byte(cfg.JWTSecret),
			Issuer:         cfg.JWTIssuer,
		})
	}
	return a, nil
}

func (a *app) close() {
	if err := a.tenants.Close(); err != nil {
		a.logger.Warn("failed to close tenant connections", "error", err)
	}
	if err := a.registry.Close(); err != nil {
		a.logger.Warn("failed to close registry store", "error", err)
	}
}

// opContext returns a context bounded by the configured operation timeout,
// so a stuck disk cannot hang a command indefinitely.
func (a *app) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.OpTimeout)
}
