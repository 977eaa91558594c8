package app

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/internal/store/drivers/memory"
	"github.com/aussiebroadwan/praxis/internal/store/drivers/redis"
	"github.com/aussiebroadwan/praxis/internal/store/drivers/sqlite"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/cryptox"
	"github.com/aussiebroadwan/praxis/pkg/httpx"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags
	BuildVersion = "v0.1.0"
)

// Application wires the session manager to its store, sealer, HTTP client
// and metrics registry.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store    store.Store
	client   *authsdk.Client
	registry *prometheus.Registry
	manager  *session.Manager
}

// New builds an Application and restores the persisted session. A nil
// notifier logs notices.
func New(ctx context.Context, cfg Config, notifier session.Notifier) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "praxis",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.Output,
		}),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	if err := app.initSession(notifier); err != nil {
		_ = app.store.Close()
		return nil, err
	}

	if err := app.manager.Restore(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	app.logger.Debug("session restored", "state", app.manager.State(), "store", cfg.Store)
	return app, nil
}

// Session returns the session manager.
func (app *Application) Session() *session.Manager { return app.manager }

// Client returns the API client the manager is wired to.
func (app *Application) Client() *authsdk.Client { return app.client }

func (app *Application) Logger() *slog.Logger { return app.logger }

// MetricsHandler exposes the application's registry.
func (app *Application) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{Registry: app.registry})
}

// Watch keeps the process, and with it the refresh timer, alive while
// serving metrics. It blocks until a shutdown signal or ctx is done.
func (app *Application) Watch(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.MetricsHandler())

	server := &http.Server{
		Addr:              app.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	app.logger.Info("watching session", "metrics_addr", app.cfg.MetricsAddr, "state", app.manager.State())

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("graceful metrics server shutdown failed", "error", err)
		return server.Close()
	}
	return nil
}

// Close stops the refresh timer and releases the store. It does not log out.
func (app *Application) Close() {
	app.manager.Close()
	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
	}
}

// initStore opens the configured driver, applying migrations for sqlite.
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.Store {
	case StoreMemory:
		app.store = memory.NewStore()

	case StoreRedis:
		st, err := redis.Open(ctx, app.cfg.RedisURL, app.cfg.RedisPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.store = st

	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		st, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := st.ApplyMigrations(); err != nil {
			_ = st.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.store = st
	}

	app.logger.Debug("store ready", "driver", app.cfg.Store)
	return nil
}

func (app *Application) initSession(notifier session.Notifier) error {
	material, err := cryptox.LoadOrCreateKeyFile(app.cfg.SealKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load seal key: %w", err)
	}
	sealer, err := cryptox.NewSealer(material)
	if err != nil {
		return fmt.Errorf("failed to create sealer: %w", err)
	}

	client, err := authsdk.NewClient(authsdk.Config{
		BaseURL: app.cfg.APIURL,
		Timeout: app.cfg.RequestTimeout,
		RateLimit: httpx.RateLimitConfig{
			RequestsPerSecond: app.cfg.RateLimitRPS,
			Burst:             app.cfg.RateLimitBurst,
		},
		RefreshWindow: app.cfg.RefreshThreshold,
		Logger:        app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	app.client = client

	manager, err := session.New(session.Options{
		API:              client,
		Store:            app.store,
		Sealer:           sealer,
		Notifier:         notifier,
		Metrics:          session.NewMetrics(app.registry),
		Logger:           app.logger,
		RefreshInterval:  app.cfg.RefreshInterval,
		RefreshThreshold: app.cfg.RefreshThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	client.SetTokenHolder(manager)
	app.manager = manager
	return nil
}
