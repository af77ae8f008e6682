package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// ErrUsage marks bad command lines; main exits with status 2 for it.
var ErrUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// App runs one fintrack command line.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Stdout io.Writer
	Stderr io.Writer

	// Hooks for tests; nil means the configured default.
	OpenStore func(inMemory bool) (core.TransactionStore, error)
	Publisher services.Publisher
	Converter services.CurrencyConverter
	Sheets    func(ctx context.Context) (export.Exporter, error)
}

type command struct {
	summary string
	run     func(ctx context.Context, a *App, t *services.Tracker, args []string) error
}

var commands = map[string]command{
	"add":       {"record an income or expense", runAdd},
	"list":      {"list transactions", runList},
	"delete":    {"delete a transaction by id", runDelete},
	"budget":    {"set, list or check budgets (set|list|status)", runBudget},
	"summary":   {"income, expenses, net savings and savings rate", runSummary},
	"breakdown": {"totals by category", runBreakdown},
	"trend":     {"monthly income and expenses", runTrend},
	"chart":     {"render a pie, line, bar or budget chart", runChart},
	"export":    {"export transactions and totals to CSV, PDF or Google Sheets", runExport},
	"convert":   {"convert an amount between currencies", runConvert},
	"reset":     {"delete every transaction and budget", runReset},
	"demo":      {"load sample transactions and budgets", runDemo},
}

func (a *App) stdout() io.Writer {
	if a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

func (a *App) stderr() io.Writer {
	if a.Stderr == nil {
		return os.Stderr
	}
	return a.Stderr
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr())
	return fs
}

// Run parses global flags, builds the tracker and dispatches args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if a.Config == nil {
		a.Config = config.Load()
	}
	a.Logger = log.OrDiscard(a.Logger).WithComponent(log.ComponentCLI)

	fs := a.flagSet("fintrack")
	inMemory := fs.Bool("memory", false, "use a throwaway in-memory store")
	dbPath := fs.String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	fs.Usage = func() { a.usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *dbPath != "" {
		a.Config.SQLiteDBPath = *dbPath
	}

	rest := fs.Args()
	if len(rest) == 0 {
		a.usage(fs)
		return usageError("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		a.usage(fs)
		return usageError("unknown command %q", rest[0])
	}

	tracker, closeAll, err := a.buildTracker(ctx, *inMemory)
	if err != nil {
		return err
	}
	defer closeAll()

	a.Logger.DebugContext(ctx, "Running command", "command", rest[0])
	return cmd.run(ctx, a, tracker, rest[1:])
}

func (a *App) buildTracker(ctx context.Context, inMemory bool) (*services.Tracker, func(), error) {
	open := a.OpenStore
	if open == nil {
		open = func(inMemory bool) (core.TransactionStore, error) {
			return OpenStore(a.Config, inMemory, a.Logger)
		}
	}
	store, err := open(inMemory)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{store.Close}

	opts := services.Options{
		Store:          store,
		Converter:      a.Converter,
		Publisher:      a.Publisher,
		Logger:         a.Logger,
		BaseCurrency:   a.Config.BaseCurrency,
		WarningPercent: a.Config.BudgetWarningPercent,
	}
	if opts.Converter == nil {
		conv, err := NewConverter(a.Config, a.Logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		opts.Converter = conv
	}
	if opts.Publisher == nil && !inMemory {
		client, err := ConnectAMQP(a.Config, a.Logger)
		if err != nil {
			// Events are optional; the store stays the source of truth
			a.Logger.WarnContext(ctx, "Transaction events disabled", log.FieldError, err)
		} else if client != nil {
			opts.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	tracker, err := services.NewTracker(opts)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				a.Logger.Warn("Close failed", log.FieldError, err)
			}
		}
	}
	return tracker, closeAll, nil
}

func (a *App) usage(fs *flag.FlagSet) {
	w := a.stderr()
	fmt.Fprintln(w, "Usage: fintrack [-memory] [-db path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.PrintDefaults()
	fmt.Fprintln(w, "\nRun 'fintrack <command> -h' for command flags.")
}

// rangeFlags are the -from, -to and -days flags shared by report commands.
type rangeFlags struct {
	from, to string
	days     int
}

func addRangeFlags(fs *flag.FlagSet) *rangeFlags {
	rf := &rangeFlags{}
	fs.StringVar(&rf.from, "from", "", "start date YYYY-MM-DD (inclusive)")
	fs.StringVar(&rf.to, "to", "", "end date YYYY-MM-DD (inclusive)")
	fs.IntVar(&rf.days, "days", 0, "last N days ending today; excludes -from/-to")
	return rf
}

func (rf *rangeFlags) resolve() (core.DateRange, error) {
	if rf.days < 0 {
		return core.DateRange{}, usageError("-days must be positive")
	}
	if rf.days > 0 {
		if rf.from != "" || rf.to != "" {
			return core.DateRange{}, usageError("-days cannot be combined with -from or -to")
		}
		return core.LastDays(rf.days), nil
	}
	return core.NewDateRange(rf.from, rf.to)
}

func parsePeriodFlag(s string) (core.Period, error) {
	if strings.TrimSpace(s) == "" {
		return core.CurrentPeriod(), nil
	}
	return core.ParsePeriod(s)
}

// parseFlags parses args, turning -h into a clean exit.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return false, parseError(err)
	}
	if fs.NArg() > 0 {
		return false, usageError("unexpected argument %q", fs.Arg(0))
	}
	return true, nil
}
