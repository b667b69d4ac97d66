package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"fuellog/internal/amqp"
	"fuellog/internal/cli"
	"fuellog/internal/config"
	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
	"fuellog/internal/storage"
	"fuellog/internal/worker"
)

const stopTimeout = 30 * time.Second

func main() {
	if err := run(context.Background()); err != nil {
		applog.Default(applog.ComponentWorker).Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run(parent context.Context) error {
	cfg, logger, err := cli.Bootstrap(applog.ComponentWorker)
	if err != nil {
		return err
	}
	if cfg.DataBackend != "sqlite" {
		return fmt.Errorf("fuellog-worker needs DATA_BACKEND=sqlite, got %q", cfg.DataBackend)
	}
	if !cfg.SheetsEnabled() {
		return errors.New("fuellog-worker needs GOOGLE_SPREADSHEET_ID to sync entries")
	}

	ctx, cancel := cli.SignalContext(parent, logger)
	defer cancel()

	logger.Info("Starting fuellog-worker", "db_path", cfg.SQLiteDBPath, "schedule", cfg.SyncSchedule)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, storage.WithLogger(logger.WithComponent(applog.ComponentStorage)))
	if err != nil {
		return fmt.Errorf("initialize SQLite repository: %w", err)
	}
	defer repo.Close()

	exporter, err := cli.NewExporter(ctx, cfg, logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		return err
	}

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.SyncBatchSize, m, logger)

	logger.Info("Performing startup sync check")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	scheduler := worker.NewScheduler(cfg.SyncSchedule, func(ctx context.Context) error {
		_, err := syncWorker.ProcessPendingEntries(ctx)
		return err
	}, logger.WithComponent(applog.ComponentWorker))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		return scheduler.Stop(stopCtx)
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeEntrySync(gctx, syncWorker.HandleSyncMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP_URL not set, relying on scheduled sync only")
	}

	if cfg.WorkerMetricsAddr != "" {
		serveMetrics(gctx, g, cfg, m, logger)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}

// serveMetrics exposes the worker's Prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, cfg *config.Config, m *metrics.Metrics, logger *applog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error {
		logger.Info("Serving worker metrics", "addr", cfg.WorkerMetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
}
