// Package cli provides the fintrack command surface and the initialization
// shared by cmd/fintrack and cmd/fintrack-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/fx"
	"fintrack/internal/log"
	"fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger from cfg and makes it the slog default.
// The closer flushes LOG_FILE when one is configured.
func SetupLogger(cfg *config.Config, component string) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Component = component
	lc.File = cfg.LogFile
	logger, closer, err := log.New(lc)
	if err != nil {
		return nil, nil, err
	}
	log.SetDefault(logger)
	return logger, closer, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the SQLite store at cfg.SQLiteDBPath, or a throwaway
// in-memory store when inMemory is set.
func OpenStore(cfg *config.Config, inMemory bool, logger *log.Logger) (core.TransactionStore, error) {
	if inMemory {
		logger.Debug("Using in-memory store")
		return memory.New(), nil
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open SQLite store at %s: %w", cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

// NewConverter builds the currency converter: live rates from FX_API_URL,
// falling back to FX_STATIC_RATES.
func NewConverter(cfg *config.Config, logger *log.Logger) (*fx.Converter, error) {
	static, err := cfg.StaticRates()
	if err != nil {
		return nil, err
	}
	return fx.NewConverter(fx.Options{
		Source:   fx.NewHTTPClient(cfg.FXAPIURL, cfg.FXTimeout),
		CacheTTL: cfg.FXCacheTTL,
		Static:   static,
		Logger:   logger,
	}), nil
}

// ConnectAMQP dials the broker; a nil client means events are disabled.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	return client, nil
}

// NewSheetsClient connects to the configured spreadsheet.
func NewSheetsClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (*google.Client, error) {
	return google.New(ctx, google.Config{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		SheetName:         cfg.GoogleSheetName,
		ExportSheetName:   cfg.GoogleExportSheetName,
		CredentialsJSON:   cfg.GoogleServiceAccountJSON,
		CredentialsFile:   cfg.GoogleServiceAccountFile,
		RequestsPerMinute: cfg.SheetsRequestsPerMinute,
	}, logger)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
