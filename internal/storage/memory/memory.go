// Package memory is an in-process core.TransactionStore used by tests and
// the -memory CLI mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type budgetKey struct {
	category string // lower-cased
	period   core.Period
}

type Store struct {
	mu      sync.Mutex
	nextID  int64
	items   []core.Transaction
	budgets map[budgetKey]core.Budget
	now     func() time.Time
}

func New() *Store {
	return &Store{budgets: map[budgetKey]core.Budget{}, now: time.Now}
}

// NewWith returns a store seeded with txs, in order.
func NewWith(txs ...core.Transaction) (*Store, error) {
	s := New()
	for _, t := range txs {
		if _, err := s.AddTransaction(context.Background(), t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.now().UTC()
	s.items = append(s.items, t)
	return t.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) SetBudget(_ context.Context, category string, period core.Period, limit decimal.Decimal) error {
	b := core.Budget{Category: core.NormalizeCategory(category), Period: period, Limit: limit}
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey{category: core.CategoryKey(b.Category), period: period}
	if prev, ok := s.budgets[key]; ok {
		// first spelling wins, as in SQLite
		b.Category = prev.Category
	}
	b.UpdatedAt = s.now().UTC()
	s.budgets[key] = b
	return nil
}

func (s *Store) GetBudgets(_ context.Context, period *core.Period) ([]core.Budget, error) {
	s.mu.Lock()
	out := make([]core.Budget, 0, len(s.budgets))
	for k, b := range s.budgets {
		if period == nil || k.period == *period {
			out = append(out, b)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return core.CategoryKey(out[i].Category) < core.CategoryKey(out[j].Category)
	})
	return out, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.budgets = map[budgetKey]core.Budget{}
	return nil
}

func (s *Store) Close() error { return nil }

var _ core.TransactionStore = (*Store)(nil)
