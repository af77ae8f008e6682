package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ratelimit"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets keeps one grid per tab and understands the few ranges the
// client uses: "Tab!A:A", "Tab!A:E", "Tab!A1:E9" and "Tab!A3:G3".
type fakeSheets struct {
	mu    sync.Mutex
	tabs  map[string][][]any
	calls []string
}

var rowRange = regexp.MustCompile(`^([A-Z])(\d+):([A-Z])(\d+)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	clear := strings.HasSuffix(rng, ":clear")
	rng = strings.TrimSuffix(rng, ":clear")
	tab, cells, _ := strings.Cut(rng, "!")
	f.calls = append(f.calls, r.Method+" "+rng)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		var col [][]any
		for _, row := range f.tabs[tab] {
			if len(row) == 0 {
				col = append(col, []any{})
				continue
			}
			col = append(col, []any{row[0]})
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": col})
	case r.Method == http.MethodPost && clear:
		if m := rowRange.FindStringSubmatch(cells); m != nil {
			n, _ := strconv.Atoi(m[2])
			if n-1 < len(f.tabs[tab]) {
				f.tabs[tab][n-1] = nil
			}
		} else {
			delete(f.tabs, tab)
		}
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m := rowRange.FindStringSubmatch(cells)
		if m == nil {
			http.Error(w, "bad range "+cells, http.StatusBadRequest)
			return
		}
		start, _ := strconv.Atoi(m[2])
		grid := f.tabs[tab]
		for len(grid) < start-1+len(body.Values) {
			grid = append(grid, nil)
		}
		for i, row := range body.Values {
			grid[start-1+i] = row
		}
		f.tabs[tab] = grid
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng, "updatedRows": len(body.Values)})
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil), fake
}

func tx(id int64, amount int64, kind core.Kind) core.Transaction {
	return core.Transaction{
		ID:       id,
		Date:     core.NewDate(2025, time.May, 3),
		Kind:     kind,
		Category: "Food",
		Amount:   decimal.NewFromInt(amount),
		Currency: "NPR",
	}
}

func TestAppendAndRemoveTransaction(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	ref, err := c.AppendTransaction(ctx, tx(1, 200, core.Expense))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Transactions!A2:G2" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if got := fmt.Sprint(fake.tabs["Transactions"][0][0]); got != "ID" {
		t.Fatalf("expected header row, got %q", got)
	}
	if got := fake.tabs["Transactions"][1][5]; got != "-200.00" {
		t.Fatalf("expected signed amount, got %v", got)
	}

	ref, err = c.AppendTransaction(ctx, tx(2, 4000, core.Income))
	if err != nil || ref != "Transactions!A3:G3" {
		t.Fatalf("second append: ref=%q err=%v", ref, err)
	}

	// Redelivery does not duplicate the row
	ref, err = c.AppendTransaction(ctx, tx(1, 200, core.Expense))
	if err != nil || ref != "Transactions!A2:G2" || len(fake.tabs["Transactions"]) != 3 {
		t.Fatalf("redelivery: ref=%q err=%v rows=%d", ref, err, len(fake.tabs["Transactions"]))
	}

	if err := c.RemoveTransaction(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if fake.tabs["Transactions"][1] != nil {
		t.Fatalf("row 2 should be cleared, got %v", fake.tabs["Transactions"][1])
	}
	if err := c.RemoveTransaction(ctx, 99); err != nil {
		t.Fatalf("removing a missing id should be a no-op: %v", err)
	}
}

func TestExportReport(t *testing.T) {
	c, fake := newFakeClient(t)
	fake.tabs["Report"] = [][]any{{"stale"}, {"rows"}, {"here"}, {"and"}, {"more"}, {"x"}, {"y"}, {"z"}}

	r := export.Report{
		Transactions: []core.Transaction{tx(1, 200, core.Expense)},
		Summary: core.Summary{
			TotalIncome:   decimal.Zero,
			TotalExpenses: decimal.NewFromInt(200),
			NetSavings:    decimal.NewFromInt(-200),
		},
	}
	if err := c.Export(context.Background(), r); err != nil {
		t.Fatalf("export: %v", err)
	}

	grid := fake.tabs["Report"]
	if len(grid) != 6 {
		t.Fatalf("expected 6 rows after clear+write, got %d: %v", len(grid), grid)
	}
	if fmt.Sprint(grid[0][0]) != "Date" || fmt.Sprint(grid[5][0]) != "Net Savings" || fmt.Sprint(grid[5][1]) != "-200.00" {
		t.Fatalf("unexpected grid: %v", grid)
	}
	if _, ok := fake.tabs["Transactions"]; ok {
		t.Fatal("export must not touch the mirror tab")
	}
	if c.Destination() != "sheets:sheet-id/Report" {
		t.Fatalf("unexpected destination %q", c.Destination())
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	bad := tx(1, 0, core.Expense)
	if _, err := c.AppendTransaction(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAppendWaitsForQuota(t *testing.T) {
	c, fake := newFakeClient(t)
	c.WithLimiter(ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.AppendTransaction(ctx, tx(1, 200, core.Expense))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "GET Transactions!A:A" {
		t.Fatalf("expected only the column read, got %v", fake.calls)
	}
}
