package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"carteira/internal/backend"
	"carteira/internal/cli"
	applog "carteira/internal/log"
	"carteira/internal/sheets"
	gsheet "carteira/internal/sheets/google"
	"carteira/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout, applog.ComponentWorker)
	logger.Info("Starting carteira-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err)
		os.Exit(1)
	}

	var reports sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
		if err != nil {
			logger.Warn("Google Sheets export disabled", applog.FieldError, err)
		} else {
			reports = client
			logger.Info("Closed months will be exported to Google Sheets",
				"sheet", cfg.GoogleReportSheetName)
		}
	}

	released := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		<-released
	})

	projection := worker.NewProjectionWorker(result.Service, reports, cfg.ProjectionInterval, logger)
	tasks := []func(context.Context) error{projection.Run}

	switch {
	case result.Events != nil:
		events := worker.NewEventLogger(logger)
		tasks = append(tasks, func(ctx context.Context) error {
			err := result.Events.ConsumeLedgerEvents(ctx, events.Handle)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", applog.OpConsume, err)
			}
			return nil
		})
	case cfg.AMQPEnabled():
		logger.Warn("AMQP configured but unreachable, ledger events will not be consumed")
	default:
		logger.Info("AMQP disabled, ledger events will not be consumed")
	}

	err = runTasks(ctx, func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to release backend", applog.FieldError, err)
		}
		close(released)
	}, tasks...)
	if err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}

// runTasks runs the tasks until one fails or ctx is cancelled. release runs
// once every task has returned, so nothing still uses what it frees.
func runTasks(ctx context.Context, release func(), tasks ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}
	err := g.Wait()
	release()
	return err
}
