package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{" 2025-12-31 ", true},
		{"2025-02-30", false},
		{"2025-13-01", false},
		{"13/06/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %v", tc.in, d)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.Last().String(); got != "2024-02-29" {
		t.Fatalf("leap february last day = %s", got)
	}
	if got := NewPeriod(2025, time.December).Next().String(); got != "2026-01" {
		t.Fatalf("next of december = %s", got)
	}
	if !NewPeriod(2025, time.May).Before(NewPeriod(2025, time.June)) {
		t.Fatal("May should be before June")
	}
	if _, err := ParsePeriod("2025-5"); err == nil {
		t.Fatal("expected error for single digit month")
	}
	r := NewPeriod(2025, time.May).Range()
	if r.From.String() != "2025-05-01" || r.To.String() != "2025-05-31" {
		t.Fatalf("unexpected range %s", r)
	}
}

func TestDateRange(t *testing.T) {
	r, err := NewDateRange("2025-05-01", "2025-06-13")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !r.Contains(NewDate(2025, time.May, 1)) || !r.Contains(NewDate(2025, time.June, 13)) {
		t.Fatal("bounds should be inclusive")
	}
	if r.Contains(NewDate(2025, time.June, 14)) {
		t.Fatal("date after end should be excluded")
	}
	if _, err := NewDateRange("2025-06-13", "2025-05-01"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for reversed range, got %v", err)
	}
	open, _ := NewDateRange("", "")
	if !open.IsOpen() || !open.Contains(NewDate(1999, time.January, 1)) {
		t.Fatal("open range should contain everything")
	}
}

func TestCategoryKey(t *testing.T) {
	cases := []struct{ a, b string }{
		{"Food", " food "},
		{"Café", "CAFÉ"},
	}
	for _, tc := range cases {
		if CategoryKey(tc.a) != CategoryKey(tc.b) {
			t.Fatalf("%q and %q should share a key: %q vs %q", tc.a, tc.b, CategoryKey(tc.a), CategoryKey(tc.b))
		}
	}
	if CategoryKey("Food") == CategoryKey("Fuel") {
		t.Fatal("distinct categories must not share a key")
	}
	f := Filter{Category: "CAFÉ"}
	if !f.Matches(Transaction{Date: NewDate(2025, time.May, 1), Category: "Café"}) {
		t.Fatal("filter should match across non-ASCII case")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:     NewDate(2025, time.June, 13),
		Kind:     Expense,
		Category: "Food",
		Amount:   decimal.RequireFromString("25"),
		Currency: "NPR",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(*Transaction){
		func(tx *Transaction) { tx.Date = Date{} },
		func(tx *Transaction) { tx.Kind = "transfer" },
		func(tx *Transaction) { tx.Category = "  " },
		func(tx *Transaction) { tx.Amount = decimal.Zero },
		func(tx *Transaction) { tx.Amount = decimal.RequireFromString("-1") },
		func(tx *Transaction) { tx.Amount = decimal.RequireFromString("1.001") },
		func(tx *Transaction) { tx.Currency = "RUPEE" },
	}
	for i, mutate := range bads {
		tx := good
		mutate(&tx)
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Category: "Food", Period: NewPeriod(2025, time.May), Limit: decimal.Zero}
	if err := b.Validate(); err != nil {
		t.Fatalf("zero limit should be allowed: %v", err)
	}
	b.Limit = decimal.RequireFromString("-5")
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative limit, got %v", err)
	}
}

func TestSignedAmount(t *testing.T) {
	tx := Transaction{Kind: Expense, Amount: decimal.RequireFromString("200")}
	if !tx.Signed().Equal(decimal.RequireFromString("-200")) {
		t.Fatalf("expense signed = %s", tx.Signed())
	}
	tx.Kind = Income
	if !tx.Signed().Equal(decimal.RequireFromString("200")) {
		t.Fatalf("income signed = %s", tx.Signed())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(StorageFailure("insert", errors.New("disk full"))) {
		t.Fatal("storage errors should be retryable")
	}
	if IsRetryable(Invalid("amount", "bad")) {
		t.Fatal("validation errors should not be retryable")
	}
	if IsRetryable(ErrEmptyDataset) {
		t.Fatal("empty dataset should not be retryable")
	}
}
