package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closer, err := cli.SetupLogger(cfg, log.ComponentWorker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fintrack-worker: logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	logger.Info("Starting fintrack-worker", log.FieldOperation, log.OpStartup)

	store, err := cli.OpenStore(cfg, false, logger)
	if err != nil {
		logger.Error("Failed to open transaction store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	sheetsClient, err := cli.NewSheetsClient(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(store, sheetsClient, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := mirror.Run(ctx, amqpClient, cfg.WorkerResync); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
