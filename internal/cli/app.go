package cli

import (
	"context"
	"fmt"
	"time"

	"fuellog/internal/backend"
	"fuellog/internal/cache"
	"fuellog/internal/config"
	"fuellog/internal/core"
	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
	"fuellog/internal/services"
	"fuellog/internal/sheets"
)

const (
	summaryCacheSize     = 8
	cacheCleanupInterval = 5 * time.Minute
)

// App holds the services and resources shared by the server and worker.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Metrics  *metrics.Metrics
	Backend  *backend.Result
	Exporter sheets.EntryExporter

	Entries     *services.EntryService
	Reference   *services.ReferenceService
	Suggestions *services.SuggestionService

	caches *cache.Manager
}

// NewApp opens the configured backend and builds the application services.
// Close releases everything NewApp acquired.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	exporter, err := NewExporter(ctx, cfg, logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}
	gateway, err := NewSuggestionGateway(ctx, cfg, logger.WithComponent(applog.ComponentSuggest))
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}

	m := metrics.New()
	summaries := cache.NewLRUCache[core.Summary](summaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	caches.Register(summaries)
	caches.StartCleanup(ctx, cacheCleanupInterval)

	opts := []services.EntryOption{
		services.WithExporter(exporter),
		services.WithSummaryCache(summaries),
		services.WithMetrics(m),
		services.WithLogger(logger.WithComponent(applog.ComponentEntry)),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Backend:     res,
		Exporter:    exporter,
		Entries:     services.NewEntryService(res.Store, opts...),
		Reference:   services.NewReferenceService(res.Store, m, logger.WithComponent(applog.ComponentReference)),
		Suggestions: services.NewSuggestionService(gateway, m),
		caches:      caches,
	}, nil
}

// Close stops background cleanup and releases the backend.
func (a *App) Close() error {
	a.caches.Stop()
	a.caches.Wait()
	return a.Backend.Cleanup()
}
