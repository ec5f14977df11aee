package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"finbook/internal/cli"
	"finbook/internal/events"
	apphttp "finbook/internal/http"
	"finbook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	// The event stream is optional; without a broker the engine runs
	// standalone and nothing is notified.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized")
		}
	}

	reconciler := services.NewReconciliationEngine(store, publisher)
	fulfillment := services.NewFulfillmentEngine(store, reconciler, publisher)
	lifecycle := services.NewLifecycleManager(store, publisher)
	obligations := services.NewObligationService(store)

	// Expirations and deferred deletions are applied on startup, before
	// any request sees the schedule.
	if report, err := lifecycle.Run(context.Background()); err != nil {
		logger.Error("Startup lifecycle run failed", "error", err)
		os.Exit(1)
	} else {
		logger.Info("Startup lifecycle run complete",
			"expired", len(report.Expired), "deleted", len(report.Deleted))
	}

	srv := apphttp.NewServer(":"+cfg.Port, obligations, fulfillment, reconciler, lifecycle)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting finbook server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
