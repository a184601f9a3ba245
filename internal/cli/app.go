package cli

import (
	"context"
	"fmt"

	"github.com/obiverse/dojo/internal/config"
	"github.com/obiverse/dojo/internal/logger"
	"github.com/obiverse/dojo/internal/metrics"
	"github.com/obiverse/dojo/internal/tracing"
	"github.com/obiverse/dojo/pkg/backend"
	"github.com/obiverse/dojo/pkg/catalog"
	"github.com/obiverse/dojo/pkg/dispatch"
	"github.com/obiverse/dojo/pkg/hokage"
	"github.com/obiverse/dojo/pkg/lane"
	"github.com/obiverse/dojo/pkg/ninja"
	"github.com/obiverse/dojo/pkg/server"
	"github.com/rs/zerolog"
)

// app is every long-lived component of a running dojo
type app struct {
	cfg         *config.Config
	metrics     *metrics.Metrics
	lanes       *lane.Queue
	registry    *ninja.Registry
	coordinator *hokage.Coordinator
	server      *server.Server
	watcher     *catalog.Watcher
	logger      zerolog.Logger
}

// loadConfig loads the config file and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		if err := config.NewValidator().ValidateLogLevel(logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section
func newLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Level,
		File:       cfg.File,
		Console:    cfg.Console,
		Pretty:     cfg.Pretty,
		Redaction:  cfg.Redaction,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

// newBackends creates one backend per configured entry and sizes its lane
func newBackends(cfg *config.Config, lanes *lane.Queue) (*backend.Pool, error) {
	factory := &backend.Factory{}
	pool := backend.NewPool(cfg.DefaultBackend)

	for name, bc := range cfg.Backends {
		b, err := factory.New(backend.Config{
			Provider:    bc.Provider,
			URL:         bc.URL,
			APIKey:      bc.APIKey,
			Model:       bc.Model,
			Temperature: bc.Temperature,
			MaxTokens:   bc.MaxTokens,
			Timeout:     bc.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		pool.Add(name, b)
		lanes.SetConcurrency(name, bc.Capacity)
	}
	return pool, nil
}

// newApp wires config into a ready-to-serve dojo. Nothing listens yet.
func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	var laneOpts []lane.Option
	laneOpts = append(laneOpts, lane.WithLogger(log.With().Str("component", "lane").Logger()))
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewMetrics()
		laneOpts = append(laneOpts, lane.WithObserver(a.metrics))
	}
	a.lanes = lane.New(laneOpts...)

	pool, err := newBackends(cfg, a.lanes)
	if err != nil {
		a.lanes.Close()
		return nil, err
	}

	cat, err := catalog.LoadMerged(cfg.Catalog.Path)
	if err != nil {
		a.lanes.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.registry = ninja.NewRegistry(ninja.WithLogger(log.With().Str("component", "registry").Logger()))
	if err := a.registry.Populate(cat.Capabilities, cat.Contracts); err != nil {
		a.lanes.Close()
		return nil, fmt.Errorf("failed to populate registry: %w", err)
	}

	policy, err := dispatch.ParseBatchPolicy(cfg.Dispatch.BatchFailure)
	if err != nil {
		a.lanes.Close()
		return nil, err
	}

	var observers []dispatch.Observer
	if a.metrics != nil {
		observers = append(observers, a.metrics)
	}
	a.coordinator, err = hokage.New(hokage.Config{
		Name:        cfg.Coordinator.Name,
		Registry:    a.registry,
		Backends:    pool,
		Lanes:       a.lanes,
		Timeout:     cfg.Dispatch.InvocationTimeout,
		MaxBatch:    cfg.Dispatch.MaxBatch,
		MaxChain:    cfg.Dispatch.MaxChain,
		BatchPolicy: policy,
		Observers:   observers,
		Logger:      log.With().Str("component", "hokage").Logger(),
	})
	if err != nil {
		a.lanes.Close()
		return nil, err
	}

	options := server.Options{
		Host:                  cfg.Server.Host,
		Port:                  cfg.Server.Port,
		RateLimitPerMinute:    cfg.Server.RateLimitPerMinute,
		TrustForwardedHeaders: cfg.Server.TrustProxy,
		MaxBodyBytes:          cfg.Server.MaxBodyBytes,
		ShutdownTimeout:       cfg.Server.ShutdownTimeout,
	}
	if a.metrics != nil {
		options.MetricsHandler = a.metrics.Handler()
		options.MetricsPath = cfg.Metrics.Path
		options.Observer = a.metrics
	}
	a.server, err = server.New(options, a.coordinator, log.With().Str("component", "server").Logger())
	if err != nil {
		a.lanes.Close()
		return nil, err
	}

	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		a.watcher, err = catalog.NewWatcher(catalog.WatcherConfig{
			Path:     cfg.Catalog.Path,
			Registry: a.registry,
			Logger:   log.With().Str("component", "catalog").Logger(),
		})
		if err != nil {
			a.lanes.Close()
			return nil, err
		}
	}

	return a, nil
}

// start begins watching the catalog. The HTTP server is started separately.
func (a *app) start() error {
	if a.cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(a.cfg.Tracing.ServiceName); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			return err
		}
	}
	return nil
}

// stop shuts components down in reverse dependency order
func (a *app) stop(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(a.server.Stop(ctx))
	if a.watcher != nil {
		keep(a.watcher.Stop())
	}
	keep(a.lanes.Close())
	if a.cfg.Tracing.Enabled {
		keep(tracing.ShutdownOpenTelemetry(ctx))
	}
	return firstErr
}
