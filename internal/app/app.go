// Package app wires configuration into the relay, usage tracking and HTTP
// server, and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"geoprompt/config"
	"geoprompt/internal/httpclient"
	"geoprompt/internal/llmclient"
	"geoprompt/internal/observability"
	"geoprompt/internal/providers/groq"
	"geoprompt/internal/relay"
	"geoprompt/internal/server"
	"geoprompt/internal/usage"
)

// App represents the main application with all its dependencies.
type App struct {
	config *config.Config
	relay  *relay.Service
	usage  *usage.Result
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New builds every component from cfg. The caller must call Shutdown.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &App{config: cfg}

	usageResult, err := usage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize usage tracking: %w", err)
	}
	app.usage = usageResult

	app.relay = NewRelay(cfg, relay.WithUsageLogger(usageResult.Logger))

	app.logStartupInfo()

	app.server = server.New(app.relay, &server.Config{
		BodySizeLimit:   cfg.Server.BodySizeLimit,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		SwaggerEnabled:  cfg.Server.SwaggerEnabled,
		StaticDir:       cfg.Static.Dir,
		IndexFile:       cfg.Static.IndexFile,
	})

	return app, nil
}

// NewRelay builds the relay service from cfg. Without a Groq key the service
// has no completer and every prediction fails with a configuration error.
func NewRelay(cfg *config.Config, opts ...relay.Option) *relay.Service {
	relayCfg := relay.Config{Model: cfg.Groq.Model}

	if cfg.Metrics.Enabled {
		opts = append(opts, relay.WithOutcomeObserver(observability.RecordPrediction))
	}

	if !cfg.HasGroqKey() {
		return relay.New(nil, relayCfg, opts...)
	}

	var hooks llmclient.Hooks
	if cfg.Metrics.Enabled {
		hooks = observability.NewPrometheusHooks()
	}

	clientCfg := httpclient.DefaultConfig(time.Duration(cfg.Groq.Timeout) * time.Second)
	provider := groq.New(cfg.Groq.APIKey, groq.Options{
		BaseURL:    cfg.Groq.BaseURL,
		HTTPClient: httpclient.NewHTTPClient(&clientCfg),
		MaxRetries: cfg.Groq.MaxRetries,
		Hooks:      hooks,
	})
	return relay.New(provider, relayCfg, opts...)
}

// Relay returns the prediction service.
func (a *App) Relay() *relay.Service {
	return a.relay
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// UsageLogger returns the usage logger interface.
func (a *App) UsageLogger() usage.LoggerInterface {
	if a.usage == nil {
		return nil
	}
	return a.usage.Logger
}

// Start serves HTTP on addr and blocks until the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Run serves HTTP on addr until ctx is done or the server fails, then shuts
// the application down. It returns only after Shutdown has completed.
func (a *App) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	startErr := make(chan error, 1)
	go func() {
		startErr <- a.Start(addr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown requested")
	case runErr = <-startErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops the HTTP server, then flushes usage tracking and closes its
// storage. It attempts every step, joins their errors and is idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.usage != nil {
		if err := a.usage.Close(); err != nil {
			slog.Error("usage close error", "error", err)
			errs = append(errs, fmt.Errorf("usage close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.HasGroqKey() {
		slog.Info("groq configured",
			"model", a.relay.Model(),
			"base_url", cfg.Groq.BaseURL,
			"timeout_seconds", cfg.Groq.Timeout,
			"max_retries", cfg.Groq.MaxRetries,
		)
	} else {
		slog.Warn("GROQ_API_KEY not set - /api/predict will answer 500 until it is configured")
	}

	slog.Info("serving static files", "dir", cfg.Static.Dir, "index", cfg.Static.IndexFile)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	if cfg.Usage.Enabled {
		slog.Info("usage tracking enabled",
			"storage_type", cfg.Storage.Type,
			"buffer_size", cfg.Usage.BufferSize,
			"flush_interval", cfg.Usage.FlushInterval,
			"retention_days", cfg.Usage.RetentionDays,
		)
	} else {
		slog.Info("usage tracking disabled")
	}
}
