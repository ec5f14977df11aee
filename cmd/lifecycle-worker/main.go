package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finbook/internal/cli"
	"finbook/internal/core"
	"finbook/internal/events"
	"finbook/internal/export"
	googleexport "finbook/internal/export/google"
	"finbook/internal/export/memory"
	"finbook/internal/services"
	"finbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting lifecycle-worker",
		"interval", cfg.CheckInterval, "sqlite_db", cfg.SQLiteDBPath)

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	var client *events.Client
	if cfg.AMQPURL != "" {
		var err error
		client, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			client = nil
		} else {
			defer client.Close()
		}
	}

	var publisher services.Publisher
	if client != nil {
		publisher = client
	}

	reconciler := services.NewReconciliationEngine(store, publisher)
	fulfillment := services.NewFulfillmentEngine(store, reconciler, publisher)
	lifecycle := services.NewLifecycleManager(store, publisher)

	var writer export.SummaryWriter
	switch cfg.ExportBackend {
	case "sheets":
		sheetsClient, err := googleexport.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Sheets export backend", "error", err)
			os.Exit(1)
		}
		writer = sheetsClient
		logger.Info("Initialized Sheets export backend")
	default:
		writer = memory.New()
		logger.Info("Initialized memory export backend")
	}
	exporter := worker.NewExportWorker(store, writer)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	// Periodic sweep: lifecycle transitions, then overdue catch-up.
	g.Go(func() error {
		runSweep(gctx, logger, lifecycle, fulfillment)

		ticker := time.NewTicker(cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				runSweep(gctx, logger, lifecycle, fulfillment)
			}
		}
	})

	// Export consumer: mirrors recomputed summaries to the backend.
	if client != nil {
		g.Go(func() error {
			return client.Consume(gctx, func(msg *events.Message) error {
				return exporter.HandleMessage(gctx, msg)
			})
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Lifecycle-worker shutdown complete")
}

func runSweep(ctx context.Context, logger *slog.Logger, lifecycle *services.LifecycleManager, fulfillment *services.FulfillmentEngine) {
	report, err := lifecycle.Run(ctx)
	if err != nil {
		logger.Error("Lifecycle run failed", "error", err)
	} else if len(report.Expired) > 0 || len(report.Deleted) > 0 {
		logger.Info("Lifecycle run complete",
			"expired", len(report.Expired), "deleted", len(report.Deleted))
	}

	detected, err := fulfillment.DetectOverdue(ctx, core.Date{})
	if err != nil {
		logger.Error("Overdue detection failed", "error", err)
		return
	}
	if len(detected) == 0 {
		return
	}
	committed, err := fulfillment.CommitDetected(ctx, detected, core.Date{})
	if err != nil {
		logger.Error("Overdue commit failed", "error", err)
		return
	}
	logger.Info("Overdue catch-up complete",
		"detected", len(detected), "committed", len(committed))
}
