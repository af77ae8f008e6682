package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Filter selects transactions; zero fields match everything.
type Filter struct {
	Range    DateRange
	Category string // compared by CategoryKey
	Kind     Kind
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t Transaction) bool {
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if key := CategoryKey(f.Category); key != "" && key != CategoryKey(t.Category) {
		return false
	}
	return true
}

// Ports implemented by the storage adapters.
type (
	TransactionWriter interface {
		AddTransaction(ctx context.Context, t Transaction) (int64, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	TransactionReader interface {
		// ListTransactions returns matches ordered by date, then id.
		ListTransactions(ctx context.Context, f Filter) ([]Transaction, error)
		GetTransaction(ctx context.Context, id int64) (Transaction, error)
	}

	BudgetStore interface {
		SetBudget(ctx context.Context, category string, period Period, limit decimal.Decimal) error
		// GetBudgets returns every budget when period is nil.
		GetBudgets(ctx context.Context, period *Period) ([]Budget, error)
	}

	// TransactionStore is the full persistence contract.
	TransactionStore interface {
		TransactionWriter
		TransactionReader
		BudgetStore
		// Reset removes every transaction and budget.
		Reset(ctx context.Context) error
		Close() error
	}
)
