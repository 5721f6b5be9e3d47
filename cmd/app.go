package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tenant-scraper/internal/config"
	"tenant-scraper/internal/connector"
	"tenant-scraper/internal/logging"
	"tenant-scraper/internal/manager"
	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
	"tenant-scraper/internal/scraper"
	"tenant-scraper/internal/storage"
)

// app holds the components shared by the serve and run-once commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *storage.Storage
	cycles  *manager.CycleManager
	cleanup []func()
}

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	logger.Info("Configuration loaded", zap.String("path", path))
	return cfg, logger, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.Storage, error) {
	store, err := storage.NewStorage(cfg.Database.URL, storage.WithOperationTimeout(cfg.Storage.OperationTimeout))
	if err != nil {
		return nil, fmt.Errorf("init DB: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("PostgreSQL connected")
	return store, nil
}

// newRegistry registers every connector the service ships with. The
// connectors share one rate-limited HTTP client.
func newRegistry(cfg config.ConnectorConfig, logger *zap.Logger) *connector.Registry {
	client := connector.NewHTTPClient(connector.HTTPClientOptions{
		Timeout:           cfg.HTTPTimeout,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		UserAgent:         "tenant-scraper/1.0",
	})

	registry := connector.NewRegistry(logger)
	registry.Register(model.IntegrationConfluence, connector.NewConfluence(client, cfg.PageLimit, logger.Named("confluence")))
	registry.Register(model.IntegrationJira, connector.NewJira(client, cfg.PageLimit, logger.Named("jira")))
	return registry
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	metrics.Init()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	recorder := metrics.Prometheus{}
	reconciler := scraper.NewReconciler(store, cfg.Scraper.RecordBatchSize, logger.Named("reconciler"), recorder)
	orchestrator := scraper.NewOrchestrator(newRegistry(cfg.Connectors, logger), reconciler, cfg.Scraper.FetchTimeout, logger.Named("orchestrator"), recorder)
	scheduler := scraper.NewScheduler(orchestrator, cfg.Scraper.TenantGroupSize, logger.Named("scheduler"), recorder)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cycles: manager.NewCycleManager(store, scheduler, cfg.Scraper.Interval, cfg.Scraper.RunOnStartup, logger.Named("cycles")),
		cleanup: []func(){
			func() { store.Close() },
		},
	}, nil
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	_ = a.logger.Sync()
}
