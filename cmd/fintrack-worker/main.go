package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Invalid worker configuration", applog.FieldError, err)
		os.Exit(1)
	}

	be := cli.MustOpenBackend(context.Background(), logger, cfg)
	defer be.Close()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	applog.WithComponent(logger, applog.ComponentSheets).Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(be.Store, sheetsClient, worker.Config{
		Timeout:  cfg.ExportTimeout,
		Location: cfg.Location(),
		Logger:   logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on writes made while the worker was down.
	logger.Info("Performing startup export...")
	if err := exportWorker.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed",
			applog.NewFields().WithOperation(applog.OpStartup).WithError(err).ToSlice()...)
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.ConsumePersistEvents(ctx, exportWorker.HandlePersistEvent)
	}()

	select {
	case <-ctx.Done():
		<-consumeErr
		<-done
		logger.Info("Worker shutdown complete", "last_revision", exportWorker.LastRevision())
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}
}
