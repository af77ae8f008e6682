package services

import (
	"context"
	"fmt"

	"fintrack/internal/analyzer"
	"fintrack/internal/core"
)

// baseReader is the read side used for reports. Rows stored in another
// currency come back converted to the base currency; stored rows are never
// rewritten.
type baseReader struct {
	store core.TransactionStore
	conv  CurrencyConverter
	base  string
}

func (r *baseReader) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	txs, err := r.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if out[i], err = r.toBase(ctx, tx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *baseReader) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := r.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return r.toBase(ctx, tx)
}

func (r *baseReader) GetBudgets(ctx context.Context, period *core.Period) ([]core.Budget, error) {
	return r.store.GetBudgets(ctx, period)
}

func (r *baseReader) toBase(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Currency == r.base {
		return tx, nil
	}
	if r.conv == nil {
		return core.Transaction{}, fmt.Errorf("transaction %d in %s: %w", tx.ID, tx.Currency, core.ErrConversionUnavailable)
	}
	conv, err := r.conv.Convert(ctx, tx.Amount, tx.Currency, r.base)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	tx.Amount = conv.Amount.Round(core.MinorDigits)
	tx.Currency = r.base
	return tx, nil
}

var _ analyzer.Store = (*baseReader)(nil)
