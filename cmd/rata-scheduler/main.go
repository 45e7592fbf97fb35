package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"rata/internal/amqp"
	"rata/internal/backend"
	"rata/internal/config"
	"rata/internal/core"
	"rata/internal/log"
	"rata/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentScheduler,
	})
	log.SetDefault(logger)

	logger.Info("Starting rata-scheduler")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}
	store := result.Backend

	// AMQP is optional: without it transactions are still materialized,
	// only the event stream is missing.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			events = nil
		} else {
			defer events.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	projector := services.NewProjector(store)
	reconciler := services.NewReconciler(store, store)
	materializer := services.NewMaterializer(store, reconciler, events)
	runner := services.NewRunner(store, projector, materializer, cfg.RunParallelism)

	runPass := func() {
		runCtx, runCancel := context.WithTimeout(ctx, cfg.RunTimeout)
		defer runCancel()

		asOf := core.DateOf(time.Now())
		results, err := runner.RunOnce(runCtx, asOf)
		if err != nil {
			logger.ErrorContext(runCtx, "Scheduler pass failed", log.FieldError, err, log.FieldAsOf, asOf.String())
			return
		}

		var created, failed int
		for _, res := range results {
			created += res.Created
			if res.Outcome == services.OutcomeFailed {
				failed++
			}
		}
		logger.InfoContext(runCtx, "Scheduler pass complete",
			log.FieldAsOf, asOf.String(),
			log.FieldCreated, created,
			log.FieldFailed, failed)
	}

	// Catch up on startup; a scheduler that was down for days owes its
	// templates every missed occurrence.
	logger.Info("Running initial scheduling pass")
	runPass()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ScheduleSpec, runPass); err != nil {
		logger.Error("Failed to register schedule", log.FieldError, err, "schedule_spec", cfg.ScheduleSpec)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduler started", "schedule_spec", cfg.ScheduleSpec)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	cronCtx := scheduler.Stop()

	// Let an in-flight pass finish before exiting.
	select {
	case <-cronCtx.Done():
		logger.Info("Rata-scheduler shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
