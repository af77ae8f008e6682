package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analyzer"
	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/fx"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
)

// Publisher announces stored and deleted transactions. Nil disables events.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, eventType string, transactionID int64) error
}

// CurrencyConverter is the conversion side of fx.Converter.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (fx.Conversion, error)
}

// Options wires a Tracker. Only Store is required.
type Options struct {
	Store          core.TransactionStore
	Converter      CurrencyConverter
	Publisher      Publisher
	Logger         *log.Logger
	BaseCurrency   string
	WarningPercent float64
}

// TransactionInput is an unvalidated add request. A negative Amount with an
// empty Kind is an expense; an empty Currency means the base currency.
type TransactionInput struct {
	Date        core.Date
	Amount      decimal.Decimal
	Kind        core.Kind
	Category    string
	Description string
	Currency    string
}

// Tracker orchestrates storage, analysis, conversion and export.
type Tracker struct {
	store     core.TransactionStore
	reports   *baseReader
	analyzer  *analyzer.Analyzer
	converter CurrencyConverter
	publisher Publisher
	base      string
	logger    *log.Logger
	events    *log.StructuredLogger
}

func NewTracker(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, errors.New("tracker: store is required")
	}
	base := core.NormalizeCurrency(opts.BaseCurrency)
	if base == "" {
		base = core.DefaultCurrency
	}
	if err := core.ValidateCurrency(base); err != nil {
		return nil, fmt.Errorf("tracker: base currency: %w", err)
	}
	logger := log.OrDiscard(opts.Logger).WithComponent(log.ComponentTracker)
	reports := &baseReader{store: opts.Store, conv: opts.Converter, base: base}
	return &Tracker{
		store:     opts.Store,
		reports:   reports,
		analyzer:  analyzer.New(reports, opts.WarningPercent, opts.Logger),
		converter: opts.Converter,
		publisher: opts.Publisher,
		base:      base,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}, nil
}

func (t *Tracker) BaseCurrency() string { return t.base }

// AddTransaction validates in, stores it and publishes a created event.
func (t *Tracker) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = t.base
	}
	tx, err := core.NewTransaction(in.Date, in.Amount, in.Kind, in.Category, in.Description, currency)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	id, err := t.store.AddTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	tx.ID = id

	t.events.LogTransactionRecorded(ctx, id, tx.Kind.String(), tx.Category, core.FormatAmount(tx.Amount), tx.Date.String())
	t.publish(ctx, amqp.EventTransactionCreated, id)
	return tx, nil
}

func (t *Tracker) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("list transactions: %w", core.Invalid("kind", fmt.Sprintf("%q is not income or expense", f.Kind)))
	}
	txs, err := t.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (t *Tracker) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := t.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// DeleteTransaction removes one row and publishes a deleted event.
func (t *Tracker) DeleteTransaction(ctx context.Context, id int64) error {
	if err := t.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	t.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)
	t.publish(ctx, amqp.EventTransactionDeleted, id)
	return nil
}

func (t *Tracker) SetBudget(ctx context.Context, category string, period core.Period, limit decimal.Decimal) error {
	b := core.Budget{Category: core.NormalizeCategory(category), Period: period, Limit: limit}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	if err := t.store.SetBudget(ctx, b.Category, period, limit); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	t.logger.InfoContext(ctx, "Budget set",
		log.FieldCategory, b.Category,
		log.FieldPeriod, period.String(),
		log.FieldAmount, core.FormatAmount(limit))
	return nil
}

func (t *Tracker) GetBudgets(ctx context.Context, period *core.Period) ([]core.Budget, error) {
	budgets, err := t.store.GetBudgets(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	return budgets, nil
}

func (t *Tracker) Summary(ctx context.Context, r core.DateRange) (core.Summary, error) {
	s, err := t.analyzer.Summarize(ctx, r)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return s, nil
}

// CategoryBreakdown returns net totals by category; a non-empty kind limits
// it to that kind.
func (t *Tracker) CategoryBreakdown(ctx context.Context, r core.DateRange, kind core.Kind) ([]core.CategoryAmount, error) {
	var (
		items []core.CategoryAmount
		err   error
	)
	if kind == "" {
		items, err = t.analyzer.CategoryBreakdown(ctx, r)
	} else {
		items, err = t.analyzer.KindBreakdown(ctx, r, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return items, nil
}

func (t *Tracker) BudgetUtilization(ctx context.Context, period core.Period) ([]core.BudgetStatus, error) {
	statuses, err := t.analyzer.BudgetUtilization(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("budget utilization: %w", err)
	}
	return statuses, nil
}

func (t *Tracker) MonthlyTrend(ctx context.Context, r core.DateRange) ([]core.MonthTotals, error) {
	months, err := t.analyzer.MonthlyTrend(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return months, nil
}

// Convert expresses amount in another currency; an empty from means the base
// currency.
func (t *Tracker) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (fx.Conversion, error) {
	if strings.TrimSpace(from) == "" {
		from = t.base
	}
	if t.converter == nil {
		return fx.Conversion{}, fmt.Errorf("convert: %w", core.ErrConversionUnavailable)
	}
	conv, err := t.converter.Convert(ctx, amount, from, to)
	if err != nil {
		return fx.Conversion{}, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	return conv, nil
}

// RenderChart writes a pie, line or bar chart for r.
func (t *Tracker) RenderChart(ctx context.Context, w io.Writer, kind charts.Kind, r core.DateRange, opts charts.Options) error {
	if err := t.analyzer.RenderChart(ctx, w, kind, r, opts); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// RenderBudgetChart writes a bar chart of percent used per budget.
func (t *Tracker) RenderBudgetChart(ctx context.Context, w io.Writer, period core.Period, opts charts.Options) error {
	ds, err := t.analyzer.BudgetDataset(ctx, period)
	if err != nil {
		return fmt.Errorf("render budget chart: %w", err)
	}
	if err := charts.Render(w, charts.Bar, ds, opts); err != nil {
		return fmt.Errorf("render budget chart: %w", err)
	}
	return nil
}

// Export hands the rows and summary for r to exp, amounts in the base
// currency. An empty range still exports the header and a zero summary.
func (t *Tracker) Export(ctx context.Context, r core.DateRange, exp export.Exporter) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	txs, err := t.reports.ListTransactions(ctx, core.Filter{Range: r})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	report := export.Report{
		Range:        r,
		Transactions: txs,
		Summary:      analyzer.Summarize(txs, r),
		Currency:     t.base,
		GeneratedAt:  time.Now(),
	}
	if err := exp.Export(ctx, report); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	t.logger.InfoContext(ctx, "Report exported",
		log.FieldDestination, exp.Destination(),
		log.FieldRange, r.String(),
		"rows", len(txs))
	return nil
}

// Reset deletes every transaction and budget.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	t.logger.WarnContext(ctx, "All data removed", log.FieldOperation, log.OpReset)
	return nil
}

func (t *Tracker) Close() error {
	return t.store.Close()
}

func (t *Tracker) publish(ctx context.Context, eventType amqp.EventType, id int64) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishTransactionEvent(ctx, string(eventType), id); err != nil {
		// Best effort; the row is already stored
		fields := log.NewFields()
		fields[log.FieldEventType] = string(eventType)
		fields[log.FieldTransactionID] = id
		t.events.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish, fields)
	}
}
