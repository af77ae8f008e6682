package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/fx"
	"fintrack/internal/log"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Money
	BaseCurrency         string
	BudgetWarningPercent float64

	// Currency rates
	FXAPIURL      string
	FXTimeout     time.Duration
	FXCacheTTL    time.Duration
	FXStaticRates string

	// Output
	ChartDir    string
	ChartWidth  int
	ChartHeight int
	LogLevel    string
	LogFile     string

	// AMQP; an empty URL disables transaction events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleExportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsRequestsPerMinute  int

	// Worker
	WorkerResync bool
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		BaseCurrency:         getEnv("BASE_CURRENCY", core.DefaultCurrency),
		BudgetWarningPercent: getEnvFloat("BUDGET_WARNING_PERCENT", 80),

		FXAPIURL:      getEnv("FX_API_URL", fx.DefaultAPIURL),
		FXTimeout:     getEnvDuration("FX_TIMEOUT", 5*time.Second),
		FXCacheTTL:    getEnvDuration("FX_CACHE_TTL", time.Hour),
		FXStaticRates: getEnv("FX_STATIC_RATES", "INR:NPR=1.6"),

		ChartDir:    getEnv("CHART_DIR", "charts"),
		ChartWidth:  getEnvInt("CHART_WIDTH", 1024),
		ChartHeight: getEnvInt("CHART_HEIGHT", 640),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleExportSheetName:    getEnv("GOOGLE_EXPORT_SHEET_NAME", "Report"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetsRequestsPerMinute:  getEnvInt("SHEETS_REQUESTS_PER_MINUTE", 60),

		WorkerResync: getEnvBool("WORKER_RESYNC", true),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if err := core.ValidateCurrency(core.NormalizeCurrency(c.BaseCurrency)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3-letter code", c.BaseCurrency))
	}
	if c.BudgetWarningPercent <= 0 || c.BudgetWarningPercent > 100 {
		errors = append(errors, fmt.Sprintf("invalid budget warning percent %v: must be in (0, 100]", c.BudgetWarningPercent))
	}

	if parsedURL, err := url.Parse(c.FXAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid FX API URL '%s': %v", c.FXAPIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid FX API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.FXTimeout < 100*time.Millisecond || c.FXTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid FX timeout %v: must be between 100ms and 1m", c.FXTimeout))
	}
	if c.FXCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid FX cache TTL %v: must be positive", c.FXCacheTTL))
	}
	if _, err := fx.ParseStaticRates(c.FXStaticRates); err != nil {
		errors = append(errors, fmt.Sprintf("invalid FX static rates '%s': %v", c.FXStaticRates, err))
	}

	if c.ChartWidth < 200 || c.ChartWidth > 4096 {
		errors = append(errors, fmt.Sprintf("invalid chart width %d: must be between 200 and 4096", c.ChartWidth))
	}
	if c.ChartHeight < 200 || c.ChartHeight > 4096 {
		errors = append(errors, fmt.Sprintf("invalid chart height %d: must be between 200 and 4096", c.ChartHeight))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsRequestsPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("SHEETS_REQUESTS_PER_MINUTE cannot be negative, got %d", c.SheetsRequestsPerMinute))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" || c.GoogleExportSheetName == "" {
			errors = append(errors, "Google sheet names cannot be empty when a spreadsheet ID is provided")
		} else if c.GoogleSheetName == c.GoogleExportSheetName {
			errors = append(errors, fmt.Sprintf("Google mirror and export sheets must differ, both are '%s'", c.GoogleSheetName))
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the settings the mirror worker cannot run without.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// StaticRates parses FXStaticRates.
func (c *Config) StaticRates() (fx.StaticTable, error) {
	return fx.ParseStaticRates(c.FXStaticRates)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
