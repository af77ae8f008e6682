package analyzer

import (
	"context"
	"fmt"
	"io"

	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
)

// DefaultWarningPercent marks a budget as close to its limit.
const DefaultWarningPercent = 80

// Store is the read side the analyzer needs.
type Store interface {
	core.TransactionReader
	GetBudgets(ctx context.Context, period *core.Period) ([]core.Budget, error)
}

// Analyzer runs reports against a store. It never writes.
type Analyzer struct {
	store   Store
	warning decimal.Decimal
	logger  *log.Logger
}

func New(store Store, warningPercent float64, logger *log.Logger) *Analyzer {
	if warningPercent <= 0 {
		warningPercent = DefaultWarningPercent
	}
	return &Analyzer{
		store:   store,
		warning: decimal.NewFromFloat(warningPercent),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentAnalyzer),
	}
}

func (a *Analyzer) load(ctx context.Context, r core.DateRange) ([]core.Transaction, error) {
	txs, err := a.store.ListTransactions(ctx, core.Filter{Range: r})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

// Summarize reports totals over r; no rows is core.ErrEmptyDataset.
func (a *Analyzer) Summarize(ctx context.Context, r core.DateRange) (core.Summary, error) {
	txs, err := a.load(ctx, r)
	if err != nil {
		return core.Summary{}, err
	}
	if len(txs) == 0 {
		return core.Summary{}, fmt.Errorf("summary for %s: %w", r, core.ErrEmptyDataset)
	}
	s := Summarize(txs, r)
	a.logger.DebugContext(ctx, "Summary computed",
		log.FieldRange, r.String(),
		"transactions", s.TransactionCount)
	return s, nil
}

// CategoryBreakdown sums signed amounts per category over r.
func (a *Analyzer) CategoryBreakdown(ctx context.Context, r core.DateRange) ([]core.CategoryAmount, error) {
	txs, err := a.load(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("breakdown for %s: %w", r, core.ErrEmptyDataset)
	}
	return NetByCategory(txs), nil
}

// KindBreakdown sums one kind per category over r.
func (a *Analyzer) KindBreakdown(ctx context.Context, r core.DateRange, kind core.Kind) ([]core.CategoryAmount, error) {
	txs, err := a.store.ListTransactions(ctx, core.Filter{Range: r, Kind: kind})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("%s breakdown for %s: %w", kind, r, core.ErrEmptyDataset)
	}
	return ByCategory(txs, kind), nil
}

// BudgetUtilization reports every budget of period against its spending.
func (a *Analyzer) BudgetUtilization(ctx context.Context, period core.Period) ([]core.BudgetStatus, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	budgets, err := a.store.GetBudgets(ctx, &period)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil, fmt.Errorf("budgets for %s: %w", period, core.ErrEmptyDataset)
	}
	txs, err := a.store.ListTransactions(ctx, core.Filter{Range: period.Range(), Kind: core.Expense})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		st := Utilization(b, txs, a.warning)
		if st.Status != core.StatusGood {
			a.logger.InfoContext(ctx, "Budget threshold reached",
				log.FieldCategory, st.Category,
				log.FieldPeriod, period.String(),
				"percent_used", st.PercentUsed.StringFixed(1),
				"status", string(st.Status))
		}
		out = append(out, st)
	}
	return out, nil
}

// MonthlyTrend returns per-month totals across r, zero-filling empty months.
// Open bounds are taken from the data.
func (a *Analyzer) MonthlyTrend(ctx context.Context, r core.DateRange) ([]core.MonthTotals, error) {
	txs, err := a.load(ctx, r)
	if err != nil {
		return nil, err
	}
	first, last := r.From.Period(), r.To.Period()
	if r.IsOpen() {
		lo, hi, ok := Bounds(txs)
		if !ok {
			return nil, fmt.Errorf("trend for %s: %w", r, core.ErrEmptyDataset)
		}
		if r.From.IsZero() {
			first = lo
		}
		if r.To.IsZero() {
			last = hi
		}
	}
	return Trend(txs, first, last), nil
}

// RenderChart writes the chart of kind for r to w.
func (a *Analyzer) RenderChart(ctx context.Context, w io.Writer, kind charts.Kind, r core.DateRange, opts charts.Options) error {
	ds, err := a.Dataset(ctx, kind, r)
	if err != nil {
		return err
	}
	if err := charts.Render(w, kind, ds, opts); err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	a.logger.DebugContext(ctx, "Chart rendered", "chart", kind.String(), log.FieldRange, r.String())
	return nil
}

// Dataset builds the data behind a chart: expenses by category for pie,
// income against expenses per month for line, net by category for bar.
func (a *Analyzer) Dataset(ctx context.Context, kind charts.Kind, r core.DateRange) (charts.Dataset, error) {
	switch kind {
	case charts.Pie:
		byCat, err := a.KindBreakdown(ctx, r, core.Expense)
		if err != nil {
			return charts.Dataset{}, err
		}
		return charts.FromCategories("Expense Breakdown by Category", byCat), nil
	case charts.Line:
		trend, err := a.MonthlyTrend(ctx, r)
		if err != nil {
			return charts.Dataset{}, err
		}
		return charts.FromTrend("Monthly Income vs Expenses", trend), nil
	case charts.Bar:
		byCat, err := a.CategoryBreakdown(ctx, r)
		if err != nil {
			return charts.Dataset{}, err
		}
		return charts.FromCategories("Net by Category", byCat), nil
	}
	return charts.Dataset{}, core.Invalid("chart", fmt.Sprintf("%q is not pie, line or bar", kind))
}

// BudgetDataset builds a bar chart dataset of percent used per budget.
func (a *Analyzer) BudgetDataset(ctx context.Context, period core.Period) (charts.Dataset, error) {
	statuses, err := a.BudgetUtilization(ctx, period)
	if err != nil {
		return charts.Dataset{}, err
	}
	return charts.FromBudgets("Budget Utilization "+period.String(), statuses), nil
}
