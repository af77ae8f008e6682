package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: OrDiscard(logger),
	}
}

// LogTransactionRecorded logs a successfully stored transaction
func (sl *StructuredLogger) LogTransactionRecorded(ctx context.Context, id int64, kind, category, amount, date string) {
	fields := NewFields().
		WithTransaction(id, kind, category, amount, date).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
}

// LogEventPublished logs a transaction event handed to the broker
func (sl *StructuredLogger) LogEventPublished(ctx context.Context, eventID, eventType string, transactionID int64) {
	fields := NewFields().
		WithEvent(eventID, eventType).
		WithOperation(OpPublish)
	fields[FieldTransactionID] = transactionID

	sl.logger.DebugContext(ctx, "Transaction event published", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
