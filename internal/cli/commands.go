package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

func runAdd(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("add")
	date := fs.String("date", "", "transaction date YYYY-MM-DD (default today)")
	amount := fs.String("amount", "", "amount; negative means expense when -kind is omitted")
	kind := fs.String("kind", "", "income or expense")
	category := fs.String("category", "", "category, e.g. Salary or Food")
	desc := fs.String("desc", "", "description")
	currency := fs.String("currency", "", "ISO currency code (default BASE_CURRENCY)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	in := services.TransactionInput{
		Date:        core.Today(),
		Category:    *category,
		Description: *desc,
		Currency:    *currency,
	}
	var err error
	if *date != "" {
		if in.Date, err = core.ParseDate(*date); err != nil {
			return err
		}
	}
	if in.Amount, err = core.ParseAmount(*amount); err != nil {
		return err
	}
	if *kind != "" {
		if in.Kind, err = core.ParseKind(*kind); err != nil {
			return err
		}
	}

	tx, err := t.AddTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "Added transaction %d: %s %s %s %s %s\n",
		tx.ID, tx.Date, tx.Kind, tx.Category, core.FormatAmount(tx.Signed()), tx.Currency)
	return nil
}

func runList(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("list")
	rf := addRangeFlags(fs)
	category := fs.String("category", "", "only this category (case-insensitive)")
	kind := fs.String("kind", "", "only income or expense")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	r, err := rf.resolve()
	if err != nil {
		return err
	}
	f := core.Filter{Range: r, Category: *category}
	if *kind != "" {
		if f.Kind, err = core.ParseKind(*kind); err != nil {
			return err
		}
	}

	txs, err := t.ListTransactions(ctx, f)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintf(a.stdout(), "No transactions for %s\n", r)
		return nil
	}
	printTransactions(a.stdout(), txs)
	return nil
}

func runDelete(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("delete")
	id := fs.Int64("id", 0, "transaction id")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if *id == 0 && fs.NArg() == 1 {
		v, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return usageError("transaction id %q is not a number", fs.Arg(0))
		}
		*id = v
	}
	if *id <= 0 {
		return usageError("delete needs a positive transaction id")
	}
	if err := t.DeleteTransaction(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "Deleted transaction %d\n", *id)
	return nil
}

func runBudget(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	if len(args) == 0 {
		return usageError("budget needs set, list or status")
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "set":
		fs := a.flagSet("budget set")
		category := fs.String("category", "", "budget category")
		limit := fs.String("limit", "", "spending limit, 0 or more")
		period := fs.String("period", "", "month YYYY-MM (default current month)")
		if ok, err := parseFlags(fs, args); !ok {
			return err
		}
		p, err := parsePeriodFlag(*period)
		if err != nil {
			return err
		}
		l, err := core.ParseAmount(*limit)
		if err != nil {
			return err
		}
		if err := t.SetBudget(ctx, *category, p, l); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout(), "Budget for %s in %s set to %s\n", core.NormalizeCategory(*category), p, core.FormatAmount(l))
		return nil

	case "list":
		fs := a.flagSet("budget list")
		period := fs.String("period", "", "only this month YYYY-MM")
		if ok, err := parseFlags(fs, args); !ok {
			return err
		}
		var pp *core.Period
		if *period != "" {
			p, err := core.ParsePeriod(*period)
			if err != nil {
				return err
			}
			pp = &p
		}
		budgets, err := t.GetBudgets(ctx, pp)
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Fprintln(a.stdout(), "No budgets set")
			return nil
		}
		printBudgets(a.stdout(), budgets)
		return nil

	case "status":
		fs := a.flagSet("budget status")
		period := fs.String("period", "", "month YYYY-MM (default current month)")
		if ok, err := parseFlags(fs, args); !ok {
			return err
		}
		p, err := parsePeriodFlag(*period)
		if err != nil {
			return err
		}
		statuses, err := t.BudgetUtilization(ctx, p)
		if errors.Is(err, core.ErrEmptyDataset) {
			fmt.Fprintf(a.stdout(), "No budgets set for %s\n", p)
			return nil
		}
		if err != nil {
			return err
		}
		printBudgetStatus(a.stdout(), statuses)
		return nil
	}
	return usageError("unknown budget command %q", sub)
}

func runSummary(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("summary")
	rf := addRangeFlags(fs)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	r, err := rf.resolve()
	if err != nil {
		return err
	}
	s, err := t.Summary(ctx, r)
	if errors.Is(err, core.ErrEmptyDataset) {
		fmt.Fprintf(a.stdout(), "No transactions for %s\n", r)
		return nil
	}
	if err != nil {
		return err
	}
	printSummary(a.stdout(), s, t.BaseCurrency())
	return nil
}

func runBreakdown(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("breakdown")
	rf := addRangeFlags(fs)
	kind := fs.String("kind", "", "only income or expense (default net of both)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	r, err := rf.resolve()
	if err != nil {
		return err
	}
	var k core.Kind
	if *kind != "" {
		if k, err = core.ParseKind(*kind); err != nil {
			return err
		}
	}
	items, err := t.CategoryBreakdown(ctx, r, k)
	if errors.Is(err, core.ErrEmptyDataset) {
		fmt.Fprintf(a.stdout(), "No transactions for %s\n", r)
		return nil
	}
	if err != nil {
		return err
	}
	printCategories(a.stdout(), items)
	return nil
}

func runTrend(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("trend")
	rf := addRangeFlags(fs)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	r, err := rf.resolve()
	if err != nil {
		return err
	}
	months, err := t.MonthlyTrend(ctx, r)
	if errors.Is(err, core.ErrEmptyDataset) {
		fmt.Fprintf(a.stdout(), "No transactions for %s\n", r)
		return nil
	}
	if err != nil {
		return err
	}
	printTrend(a.stdout(), months)
	return nil
}

func runChart(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("chart")
	rf := addRangeFlags(fs)
	kind := fs.String("kind", "pie", "pie (expenses), line (monthly trend), bar (net by category) or budget")
	period := fs.String("period", "", "month for -kind budget (default current month)")
	format := fs.String("format", "png", "png or svg")
	out := fs.String("out", "", "output file (default CHART_DIR/<kind>_chart.<format>)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	f, err := charts.ParseFormat(*format)
	if err != nil {
		return err
	}
	opts := charts.Options{Width: a.Config.ChartWidth, Height: a.Config.ChartHeight, Format: f}

	// Render to memory so nothing is written for an empty dataset
	var buf bytes.Buffer
	if *kind == "budget" {
		p, err := parsePeriodFlag(*period)
		if err != nil {
			return err
		}
		err = t.RenderBudgetChart(ctx, &buf, p, opts)
		if errors.Is(err, core.ErrEmptyDataset) {
			fmt.Fprintf(a.stdout(), "No budgets set for %s\n", p)
			return nil
		}
		if err != nil {
			return err
		}
	} else {
		k, err := charts.ParseKind(*kind)
		if err != nil {
			return err
		}
		r, err := rf.resolve()
		if err != nil {
			return err
		}
		err = t.RenderChart(ctx, &buf, k, r, opts)
		if errors.Is(err, core.ErrEmptyDataset) {
			fmt.Fprintf(a.stdout(), "Nothing to chart for %s\n", r)
			return nil
		}
		if err != nil {
			return err
		}
	}

	path := *out
	if path == "" {
		path = filepath.Join(a.Config.ChartDir, fmt.Sprintf("%s_chart.%s", *kind, f))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(a.stdout(), "Chart saved to %s\n", path)
	return nil
}

func runExport(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("export")
	rf := addRangeFlags(fs)
	out := fs.String("out", "", "output file; .pdf selects PDF (default fintrack_export_<today>.csv)")
	format := fs.String("format", "", "csv or pdf (default from -out extension)")
	toSheets := fs.Bool("sheets", false, "write to the Google Sheets report tab instead of a file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	r, err := rf.resolve()
	if err != nil {
		return err
	}

	var exp export.Exporter
	if *toSheets {
		if *out != "" || *format != "" {
			return usageError("-sheets cannot be combined with -out or -format")
		}
		newSheets := a.Sheets
		if newSheets == nil {
			newSheets = func(ctx context.Context) (export.Exporter, error) {
				return NewSheetsClient(ctx, a.Config, a.Logger)
			}
		}
		if exp, err = newSheets(ctx); err != nil {
			return err
		}
	} else {
		path := *out
		if path == "" {
			path = fmt.Sprintf("fintrack_export_%s.csv", core.Today())
		}
		f := export.FormatForPath(path)
		if *format != "" {
			if f, err = export.ParseFormat(*format); err != nil {
				return err
			}
		}
		exp = export.NewFile(path, f)
	}

	if err := t.Export(ctx, r, exp); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "Exported %s to %s\n", r, exp.Destination())
	return nil
}

func runConvert(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("convert")
	amount := fs.String("amount", "", "amount to convert")
	from := fs.String("from", "", "source currency (default BASE_CURRENCY)")
	to := fs.String("to", "", "target currency")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if strings.TrimSpace(*to) == "" {
		return usageError("convert needs -to")
	}
	amt, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil {
		return core.Invalid("amount", fmt.Sprintf("%q is not a number", *amount))
	}

	conv, err := t.Convert(ctx, amt, *from, *to)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "%s %s = %s %s (rate %s, %s",
		core.FormatAmount(amt), conv.From, core.FormatAmount(conv.Amount), conv.To, conv.Rate.String(), conv.Source)
	if !conv.FetchedAt.IsZero() {
		fmt.Fprintf(a.stdout(), " as of %s", conv.FetchedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintln(a.stdout(), ")")
	return nil
}

func runReset(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("reset")
	yes := fs.Bool("yes", false, "confirm deleting all data")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if !*yes {
		return usageError("reset deletes every transaction and budget; pass -yes to confirm")
	}
	if err := t.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout(), "All transactions and budgets deleted")
	return nil
}

func runDemo(ctx context.Context, a *App, t *services.Tracker, args []string) error {
	fs := a.flagSet("demo")
	period := fs.String("period", "", "month to fill YYYY-MM (default current month)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	p, err := parsePeriodFlag(*period)
	if err != nil {
		return err
	}
	n, err := t.SeedDemo(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "Added %d sample transactions and budgets for %s\n\n", n, p)

	s, err := t.Summary(ctx, p.Range())
	if err != nil {
		return err
	}
	printSummary(a.stdout(), s, t.BaseCurrency())
	statuses, err := t.BudgetUtilization(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout())
	printBudgetStatus(a.stdout(), statuses)
	return nil
}

func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
