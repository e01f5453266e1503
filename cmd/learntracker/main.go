package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/learntracker/learntracker/pkg/analytics"
	"github.com/learntracker/learntracker/pkg/api"
	"github.com/learntracker/learntracker/pkg/config"
	"github.com/learntracker/learntracker/pkg/observability"
	"github.com/learntracker/learntracker/pkg/storage"
	"github.com/learntracker/learntracker/pkg/storage/memory"
	"github.com/learntracker/learntracker/pkg/storage/postgres"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML configuration file (overrides "+config.ConfigFileEnv+")")
	flag.Parse()

	if *configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, *configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("LearnTracker exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	logger.WithField("backend", store.Backend()).Info("Storage initialized")

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	refresher := observability.NewBusinessMetricsRefresher(store, metrics, logger)
	refresher.Refresh(ctx)

	engine := analytics.NewEngine(store, analytics.WithSimulatedLatency(
		cfg.Analytics.CourseAnalyticsLatency,
		cfg.Analytics.StudentProgressLatency,
	))

	server := api.NewServer(store, engine, metrics, logger,
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithRefresher(refresher),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register("opentelemetry", providers.Shutdown)
	shutdown.Register("storage", func(context.Context) error { return store.Close() })

	if spec := cfg.Observability.MetricsRefreshSchedule; spec != "" {
		scheduler, err := refresher.StartSchedule(spec)
		if err != nil {
			return err
		}
		shutdown.Register("metrics refresh", func(ctx context.Context) error {
			select {
			case <-scheduler.Stop().Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	serveErr := make(chan error, 1)
	go func() {
		defer observability.RecoverPanic(logger, "http server")
		logger.Infof("Starting LearnTracker on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		return err
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	default:
		return nil
	}
}

// openStore connects the configured backend and starts replica pruning for postgres
func openStore(ctx context.Context, cfg storage.Config, logger *observability.Logger) (storage.Store, error) {
	switch cfg.Type {
	case storage.TypeMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.New(), nil
	case storage.TypePostgres:
		pg, err := postgres.NewPostgresStorage(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		if conns := pg.Connections(); conns.ReplicaCount() > 0 && cfg.ReplicaHealthInterval > 0 {
			conns.StartHealthCheckRoutine(ctx, cfg.ReplicaHealthInterval)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
