package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// busyTimeoutMillis bounds how long a writer waits on a locked database.
const busyTimeoutMillis = 5000

// SQLiteRepository implements core.TransactionStore on a SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// DSN builds the driver connection string for a database file.
func DSN(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dbPath, busyTimeoutMillis)
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, core.StorageFailure("create db directory", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.StorageFailure("open sqlite database", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.StorageFailure("ping database", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, core.StorageFailure("run migrations", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddTransaction validates and persists t, returning the new id.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	amountMinor, err := core.ToMinor(t.Amount)
	if err != nil {
		return 0, err
	}

	var row Transaction
	err = r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.CreateTransaction(ctx, CreateTransactionParams{
			Date:        t.Date.String(),
			Kind:        t.Kind.String(),
			Category:    t.Category,
			CategoryKey: core.CategoryKey(t.Category),
			Description: t.Description,
			AmountMinor: amountMinor,
			Currency:    t.Currency,
			CreatedAt:   r.now().UTC().Format(time.RFC3339Nano),
		})
		return err
	})
	if err != nil {
		return 0, core.StorageFailure("create transaction", err)
	}

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, row.ID,
		log.FieldKind, row.Kind,
		log.FieldCategory, row.Category,
		"amount_minor", row.AmountMinor,
		log.FieldDate, row.Date)

	return row.ID, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, core.StorageFailure("get transaction", err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		FromDate:    f.Range.From.String(),
		ToDate:      f.Range.To.String(),
		CategoryKey: core.CategoryKey(f.Category),
		Kind:        f.Kind.String(),
	})
	if err != nil {
		return nil, core.StorageFailure("list transactions", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DeleteTransaction removes a transaction; a missing id is core.ErrNotFound.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	var affected int64
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		affected, err = q.DeleteTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.StorageFailure("delete transaction", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	r.logger.DebugContext(ctx, "Transaction deleted from SQLite", log.FieldTransactionID, id)
	return nil
}

// SetBudget creates or replaces the limit for (category, period).
func (r *SQLiteRepository) SetBudget(ctx context.Context, category string, period core.Period, limit decimal.Decimal) error {
	b := core.Budget{Category: core.NormalizeCategory(category), Period: period, Limit: limit}
	if err := b.Validate(); err != nil {
		return err
	}
	limitMinor, err := core.ToMinor(b.Limit)
	if err != nil {
		return err
	}
	err = r.withTx(ctx, func(q *Queries) error {
		return q.UpsertBudget(ctx, UpsertBudgetParams{
			Category:    b.Category,
			CategoryKey: core.CategoryKey(b.Category),
			Period:      b.Period.String(),
			LimitMinor:  limitMinor,
			UpdatedAt:   r.now().UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return core.StorageFailure("upsert budget", err)
	}
	r.logger.DebugContext(ctx, "Budget saved to SQLite",
		log.FieldCategory, b.Category,
		log.FieldPeriod, b.Period.String(),
		"limit_minor", limitMinor)
	return nil
}

func (r *SQLiteRepository) GetBudgets(ctx context.Context, period *core.Period) ([]core.Budget, error) {
	var p string
	if period != nil {
		p = period.String()
	}
	rows, err := r.queries.ListBudgets(ctx, p)
	if err != nil {
		return nil, core.StorageFailure("list budgets", err)
	}

	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := toBudget(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Reset removes all transactions and budgets in one transaction.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteAllTransactions(ctx); err != nil {
			return err
		}
		return q.DeleteAllBudgets(ctx)
	})
	if err != nil {
		return core.StorageFailure("reset", err)
	}
	r.logger.InfoContext(ctx, "All transactions and budgets removed")
	return nil
}

func toTransaction(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, core.StorageFailure("decode transaction date", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, core.StorageFailure("decode transaction created_at", err)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Kind:        core.Kind(row.Kind),
		Category:    row.Category,
		Description: row.Description,
		Amount:      core.FromMinor(row.AmountMinor),
		Currency:    row.Currency,
		CreatedAt:   createdAt,
	}, nil
}

func toBudget(row Budget) (core.Budget, error) {
	period, err := core.ParsePeriod(row.Period)
	if err != nil {
		return core.Budget{}, core.StorageFailure("decode budget period", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	if err != nil {
		return core.Budget{}, core.StorageFailure("decode budget updated_at", err)
	}
	return core.Budget{
		Category:  row.Category,
		Period:    period,
		Limit:     core.FromMinor(row.LimitMinor),
		UpdatedAt: updatedAt,
	}, nil
}

var _ core.TransactionStore = (*SQLiteRepository)(nil)
