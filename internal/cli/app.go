// Package cli wires configuration into the engine, stores and servers used by
// the journey command.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/journey"
	"github.com/aretw0/journey/internal/config"
	"github.com/aretw0/journey/pkg/adapters/file"
	"github.com/aretw0/journey/pkg/adapters/memory"
	"github.com/aretw0/journey/pkg/adapters/process"
	"github.com/aretw0/journey/pkg/adapters/redis"
	"github.com/aretw0/journey/pkg/observability"
	"github.com/aretw0/journey/pkg/persistence/middleware"
	"github.com/aretw0/journey/pkg/ports"
	"github.com/aretw0/journey/pkg/registry/builtin"
	"github.com/aretw0/journey/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles the components every command needs.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *journey.Engine
	Store   ports.SessionStore
	Locker  ports.DistributedLocker
	Metrics *prometheus.Registry

	closers []func() error
}

// Build creates the engine and session store described by cfg.
// Metrics are recorded in a private Prometheus registry exposed by App.Metrics.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}

	metrics, err := observability.NewMetrics(app.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []journey.Option{
		journey.WithLogger(logger),
		journey.WithIterationFactor(cfg.Engine.MaxIterationsFactor),
		journey.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(logger))),
	}
	if cfg.Actions.Builtin {
		opts = append(opts, journey.WithBuiltinActions(builtin.WithHTTPTimeout(cfg.Actions.HTTPTimeout)))
	}
	if cfg.Actions.ToolsFile != "" {
		tools, err := process.LoadTools(cfg.Actions.ToolsFile)
		if err != nil {
			return nil, err
		}
		runner := process.NewRunner(
			process.WithTools(tools),
			process.WithBaseDir(filepath.Dir(cfg.Actions.ToolsFile)),
			process.WithTimeout(cfg.Actions.ProcessTimeout),
		)
		opts = append(opts, journey.WithActions(runner.RegisterActions))
		logger.Debug("Process tools loaded", "file", cfg.Actions.ToolsFile, "count", len(tools))
	}
	app.Engine = journey.New(cfg.WorkflowsDir, opts...)

	if err := app.openStore(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) openStore() error {
	switch a.Config.Store.Driver {
	case config.StoreMemory:
		a.Store = memory.NewStore()
	case config.StoreFile:
		a.Store = file.NewStore(a.Config.Store.Dir)
	case config.StoreRedis:
		rc := a.Config.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		a.Store = store
		a.Locker = redis.NewLocker(store.Client(), rc.Prefix)
		a.closers = append(a.closers, store.Close)
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}

	mws, err := storeMiddleware(a.Config)
	if err != nil {
		return err
	}
	a.Store = middleware.Wrap(a.Store, mws...)
	a.Logger.Debug("Session store ready", "driver", a.Config.Store.Driver, "middleware", len(mws))
	return nil
}

// storeMiddleware masks configured variables before encrypting the session.
func storeMiddleware(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Store.MaskVariables) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.MaskVariables)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.Store.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		key, err := middleware.DecodeKey(cfg.Store.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		enc.ActiveKey = key
		for i, raw := range cfg.Store.FallbackKeys {
			key, err := middleware.DecodeKey(raw)
			if err != nil {
				return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// Manager returns a session manager over the configured store, using the
// distributed locker when the store provides one.
func (a *App) Manager() (*session.Manager, error) {
	var opts []session.Option
	if a.Locker != nil {
		opts = append(opts, session.WithLocker(a.Locker))
	}
	return a.Engine.Sessions(a.Store, opts...)
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
