package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/fx"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type publishedEvent struct {
	eventType string
	id        int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, eventType string, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{eventType, id})
	return nil
}

func newTestTracker(t *testing.T, pub Publisher) *Tracker {
	t.Helper()
	static, err := fx.ParseStaticRates("INR:NPR=1.6")
	if err != nil {
		t.Fatalf("static rates: %v", err)
	}
	tr, err := NewTracker(Options{
		Store:     memory.New(),
		Converter: fx.NewConverter(fx.Options{Static: static}),
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr
}

func addExample(t *testing.T, tr *Tracker) {
	t.Helper()
	inputs := []TransactionInput{
		{Date: core.NewDate(2025, time.May, 1), Amount: decimal.NewFromInt(4000), Kind: core.Income, Category: "Salary"},
		{Date: core.NewDate(2025, time.May, 5), Amount: decimal.NewFromInt(-200), Category: "Food"},
		{Date: core.NewDate(2025, time.May, 10), Amount: decimal.NewFromInt(-245), Kind: core.Expense, Category: "Rent"},
	}
	for _, in := range inputs {
		if _, err := tr.AddTransaction(context.Background(), in); err != nil {
			t.Fatalf("add %+v: %v", in, err)
		}
	}
}

func TestTrackerSummaryExample(t *testing.T) {
	pub := &fakePublisher{}
	tr := newTestTracker(t, pub)
	addExample(t, tr)

	r, _ := core.NewDateRange("2025-05-01", "2025-06-13")
	s, err := tr.Summary(context.Background(), r)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if core.FormatAmount(s.TotalIncome) != "4000.00" ||
		core.FormatAmount(s.TotalExpenses) != "445.00" ||
		core.FormatAmount(s.NetSavings) != "3555.00" ||
		s.SavingsRateString() != "88.9%" {
		t.Fatalf("unexpected summary %+v (rate %s)", s, s.SavingsRateString())
	}

	if len(pub.events) != 3 {
		t.Fatalf("expected 3 created events, got %v", pub.events)
	}
	for i, e := range pub.events {
		if e.eventType != "transaction.created" || e.id != int64(i+1) {
			t.Fatalf("event %d = %+v", i, e)
		}
	}
}

func TestTrackerAddRoundTrip(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()

	added, err := tr.AddTransaction(ctx, TransactionInput{
		Date:        core.NewDate(2025, time.June, 13),
		Amount:      decimal.RequireFromString("12.5"),
		Kind:        core.Expense,
		Category:    " Food ",
		Description: "momo",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Currency != "NPR" {
		t.Fatalf("expected base currency, got %q", added.Currency)
	}

	txs, err := tr.ListTransactions(ctx, core.Filter{Range: core.NewPeriod(2025, time.June).Range()})
	if err != nil || len(txs) != 1 {
		t.Fatalf("list: %v %v", txs, err)
	}
	got := txs[0]
	if got.ID != added.ID || got.Category != "Food" || got.Description != "momo" ||
		!got.Amount.Equal(decimal.RequireFromString("12.50")) || got.Kind != core.Expense || got.Date != added.Date {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, added)
	}
}

func TestTrackerAddValidation(t *testing.T) {
	pub := &fakePublisher{}
	tr := newTestTracker(t, pub)

	cases := []TransactionInput{
		{Date: core.NewDate(2025, time.May, 1), Amount: decimal.Zero, Category: "Food"},
		{Date: core.NewDate(2025, time.May, 1), Amount: decimal.NewFromInt(5), Category: ""},
		{Amount: decimal.NewFromInt(5), Category: "Food"},
		{Date: core.NewDate(2025, time.May, 1), Amount: decimal.NewFromInt(-5), Kind: core.Income, Category: "Food"},
	}
	for i, in := range cases {
		_, err := tr.AddTransaction(context.Background(), in)
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
		if !strings.HasPrefix(err.Error(), "add transaction: ") {
			t.Fatalf("case %d error not wrapped: %v", i, err)
		}
	}
	if len(pub.events) != 0 {
		t.Fatalf("rejected input must not publish: %v", pub.events)
	}
}

func TestTrackerPublishFailureDoesNotFailAdd(t *testing.T) {
	tr := newTestTracker(t, &fakePublisher{err: errors.New("broker down")})
	tx, err := tr.AddTransaction(context.Background(), TransactionInput{
		Date: core.NewDate(2025, time.May, 1), Amount: decimal.NewFromInt(10), Kind: core.Income, Category: "Gift",
	})
	if err != nil || tx.ID == 0 {
		t.Fatalf("add should succeed without the broker: %+v %v", tx, err)
	}
}

func TestTrackerDelete(t *testing.T) {
	pub := &fakePublisher{}
	tr := newTestTracker(t, pub)
	addExample(t, tr)
	ctx := context.Background()

	if err := tr.DeleteTransaction(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txs, _ := tr.ListTransactions(ctx, core.Filter{})
	if len(txs) != 2 {
		t.Fatalf("delete should remove exactly one row, have %d", len(txs))
	}
	if last := pub.events[len(pub.events)-1]; last.eventType != "transaction.deleted" || last.id != 2 {
		t.Fatalf("expected deleted event for 2, got %+v", last)
	}

	if err := tr.DeleteTransaction(ctx, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTrackerBudgets(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	may := core.NewPeriod(2025, time.May)

	if err := tr.SetBudget(ctx, "Food", may, decimal.NewFromInt(400)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tr.SetBudget(ctx, "food", may, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	budgets, err := tr.GetBudgets(ctx, &may)
	if err != nil || len(budgets) != 1 || !budgets[0].Limit.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected a single overwritten budget, got %+v %v", budgets, err)
	}

	if err := tr.SetBudget(ctx, "Food", may, decimal.NewFromInt(-1)); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = tr.AddTransaction(ctx, TransactionInput{Date: core.NewDate(2025, time.May, 7), Amount: decimal.NewFromInt(-600), Category: "Food"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	statuses, err := tr.BudgetUtilization(ctx, may)
	if err != nil || len(statuses) != 1 {
		t.Fatalf("utilization: %+v %v", statuses, err)
	}
	if !statuses[0].PercentUsed.Equal(decimal.NewFromInt(120)) || statuses[0].Status != core.StatusOver {
		t.Fatalf("expected 120%% over, got %+v", statuses[0])
	}
}

func TestTrackerExportCSV(t *testing.T) {
	tr := newTestTracker(t, nil)
	addExample(t, tr)

	var buf bytes.Buffer
	r, _ := core.NewDateRange("2025-05-01", "2025-06-13")
	if err := tr.Export(context.Background(), r, export.NewCSV(&buf)); err != nil {
		t.Fatalf("export: %v", err)
	}
	want := strings.Join([]string{
		"Date,Type,Category,Description,Amount",
		"2025-05-01,income,Salary,,4000.00",
		"2025-05-05,expense,Food,,-200.00",
		"2025-05-10,expense,Rent,,-245.00",
		"",
		"Total Income,4000.00",
		"Total Expenses,445.00",
		"Net Savings,3555.00",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

type failingExporter struct{}

func (failingExporter) Destination() string { return "broken" }
func (failingExporter) Export(context.Context, export.Report) error {
	return core.ExportFailure("broken", errors.New("permission denied"))
}

func TestTrackerExportFailure(t *testing.T) {
	tr := newTestTracker(t, nil)
	err := tr.Export(context.Background(), core.DateRange{}, failingExporter{})
	if !errors.Is(err, core.ErrExport) {
		t.Fatalf("expected export error, got %v", err)
	}
}

func TestTrackerEmptyReports(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	r := core.NewPeriod(2025, time.May).Range()

	if _, err := tr.Summary(ctx, r); !errors.Is(err, core.ErrEmptyDataset) {
		t.Fatalf("summary: expected empty dataset, got %v", err)
	}
	if _, err := tr.CategoryBreakdown(ctx, r, ""); !errors.Is(err, core.ErrEmptyDataset) {
		t.Fatalf("breakdown: expected empty dataset, got %v", err)
	}
	var buf bytes.Buffer
	if err := tr.RenderChart(ctx, &buf, charts.Pie, r, charts.Options{}); !errors.Is(err, core.ErrEmptyDataset) {
		t.Fatalf("chart: expected empty dataset, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("no chart bytes should be written for an empty dataset")
	}
}

func TestTrackerConvert(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()

	conv, err := tr.Convert(ctx, decimal.NewFromInt(100), "INR", "NPR")
	if err != nil || core.FormatAmount(conv.Amount) != "160.00" || conv.Source != fx.SourceStatic {
		t.Fatalf("INR->NPR: %+v %v", conv, err)
	}
	conv, err = tr.Convert(ctx, decimal.NewFromInt(100), "", "INR")
	if err != nil || core.FormatAmount(conv.Amount) != "62.50" {
		t.Fatalf("base->INR: %+v %v", conv, err)
	}
	if _, err := tr.Convert(ctx, decimal.NewFromInt(1), "USD", "EUR"); !errors.Is(err, core.ErrConversionUnavailable) {
		t.Fatalf("expected conversion unavailable, got %v", err)
	}

	bare, _ := NewTracker(Options{Store: memory.New()})
	if _, err := bare.Convert(ctx, decimal.NewFromInt(1), "INR", "NPR"); !errors.Is(err, core.ErrConversionUnavailable) {
		t.Fatalf("no converter: expected conversion unavailable, got %v", err)
	}
}

func TestTrackerReportsInBaseCurrency(t *testing.T) {
	ctx := context.Background()
	static, err := fx.ParseStaticRates("USD:NPR=133.5")
	if err != nil {
		t.Fatalf("static rates: %v", err)
	}
	store := memory.New()
	tr, err := NewTracker(Options{Store: store, Converter: fx.NewConverter(fx.Options{Static: static})})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	may := core.NewPeriod(2025, time.May)
	inputs := []TransactionInput{
		{Date: core.NewDate(2025, time.May, 1), Amount: decimal.NewFromInt(4000), Kind: core.Income, Category: "Salary"},
		{Date: core.NewDate(2025, time.May, 2), Amount: decimal.NewFromInt(100), Kind: core.Income, Category: "Gift", Currency: "USD"},
		{Date: core.NewDate(2025, time.May, 3), Amount: decimal.NewFromInt(-2), Category: "Food", Currency: "usd"},
	}
	for _, in := range inputs {
		if _, err := tr.AddTransaction(ctx, in); err != nil {
			t.Fatalf("add %+v: %v", in, err)
		}
	}
	if err := tr.SetBudget(ctx, "Food", may, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	s, err := tr.Summary(ctx, may.Range())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if core.FormatAmount(s.TotalIncome) != "17350.00" || core.FormatAmount(s.TotalExpenses) != "267.00" {
		t.Fatalf("expected converted totals 17350.00/267.00, got %s/%s", s.TotalIncome, s.TotalExpenses)
	}

	statuses, err := tr.BudgetUtilization(ctx, may)
	if err != nil || len(statuses) != 1 || core.FormatAmount(statuses[0].Spent) != "267.00" {
		t.Fatalf("budget spent should be converted: %+v %v", statuses, err)
	}

	var buf bytes.Buffer
	if err := tr.Export(ctx, may.Range(), export.NewCSV(&buf)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "2025-05-02,income,Gift,,13350.00") {
		t.Fatalf("export rows should be in the base currency:\n%s", buf.String())
	}

	stored, _ := tr.ListTransactions(ctx, core.Filter{Category: "Gift"})
	if len(stored) != 1 || stored[0].Currency != "USD" || core.FormatAmount(stored[0].Amount) != "100.00" {
		t.Fatalf("stored row should keep its own currency: %+v", stored)
	}

	if _, err := tr.AddTransaction(ctx, TransactionInput{Date: core.NewDate(2025, time.May, 4), Amount: decimal.NewFromInt(5), Kind: core.Income, Category: "Gift", Currency: "EUR"}); err != nil {
		t.Fatalf("add EUR: %v", err)
	}
	if _, err := tr.Summary(ctx, may.Range()); !errors.Is(err, core.ErrConversionUnavailable) {
		t.Fatalf("expected conversion unavailable for EUR row, got %v", err)
	}

	bare, _ := NewTracker(Options{Store: store})
	if _, err := bare.Summary(ctx, may.Range()); !errors.Is(err, core.ErrConversionUnavailable) {
		t.Fatalf("no converter: expected conversion unavailable, got %v", err)
	}
}

func TestTrackerSeedDemoAndReset(t *testing.T) {
	tr := newTestTracker(t, nil)
	ctx := context.Background()
	june := core.NewPeriod(2025, time.June)

	n, err := tr.SeedDemo(ctx, june)
	if err != nil || n != 8 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	s, err := tr.Summary(ctx, june.Range())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if core.FormatAmount(s.TotalIncome) != "4000.00" || core.FormatAmount(s.TotalExpenses) != "445.00" || s.SavingsRateString() != "88.9%" {
		t.Fatalf("unexpected demo summary %+v", s)
	}
	statuses, err := tr.BudgetUtilization(ctx, june)
	if err != nil || len(statuses) != 4 {
		t.Fatalf("demo budgets: %+v %v", statuses, err)
	}

	if err := tr.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	txs, _ := tr.ListTransactions(ctx, core.Filter{})
	budgets, _ := tr.GetBudgets(ctx, nil)
	if len(txs) != 0 || len(budgets) != 0 {
		t.Fatalf("reset left %d transactions and %d budgets", len(txs), len(budgets))
	}
}

func TestNewTrackerRequiresStore(t *testing.T) {
	if _, err := NewTracker(Options{}); err == nil {
		t.Fatal("expected error without a store")
	}
	if _, err := NewTracker(Options{Store: memory.New(), BaseCurrency: "rupees"}); err == nil {
		t.Fatal("expected error for invalid base currency")
	}
}
