package storage

import (
	"context"
)

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (date, kind, category, category_key, description, amount_minor, currency, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, date, kind, category, description, amount_minor, currency, created_at
`

type CreateTransactionParams struct {
	Date        string
	Kind        string
	Category    string
	CategoryKey string
	Description string
	AmountMinor int64
	Currency    string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Date,
		arg.Kind,
		arg.Category,
		arg.CategoryKey,
		arg.Description,
		arg.AmountMinor,
		arg.Currency,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Kind,
		&i.Category,
		&i.Description,
		&i.AmountMinor,
		&i.Currency,
		&i.CreatedAt,
	)
	return i, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, date, kind, category, description, amount_minor, currency, created_at
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Kind,
		&i.Category,
		&i.Description,
		&i.AmountMinor,
		&i.Currency,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, date, kind, category, description, amount_minor, currency, created_at
FROM transactions
WHERE (?1 = '' OR date >= ?1)
  AND (?2 = '' OR date <= ?2)
  AND (?3 = '' OR category_key = ?3)
  AND (?4 = '' OR kind = ?4)
ORDER BY date, id
`

type ListTransactionsParams struct {
	FromDate    string
	ToDate      string
	CategoryKey string
	Kind        string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.FromDate,
		arg.ToDate,
		arg.CategoryKey,
		arg.Kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Kind,
			&i.Category,
			&i.Description,
			&i.AmountMinor,
			&i.Currency,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllTransactions = `-- name: DeleteAllTransactions :exec
DELETE FROM transactions
`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (category, category_key, period, limit_minor, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (category_key, period) DO UPDATE SET
    limit_minor = excluded.limit_minor,
    updated_at = excluded.updated_at
`

type UpsertBudgetParams struct {
	Category    string
	CategoryKey string
	Period      string
	LimitMinor  int64
	UpdatedAt   string
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) error {
	_, err := q.db.ExecContext(ctx, upsertBudget,
		arg.Category,
		arg.CategoryKey,
		arg.Period,
		arg.LimitMinor,
		arg.UpdatedAt,
	)
	return err
}

const listBudgets = `-- name: ListBudgets :many
SELECT category, period, limit_minor, updated_at
FROM budgets
WHERE (?1 = '' OR period = ?1)
ORDER BY period, category_key
`

func (q *Queries) ListBudgets(ctx context.Context, period string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(
			&i.Category,
			&i.Period,
			&i.LimitMinor,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllBudgets = `-- name: DeleteAllBudgets :exec
DELETE FROM budgets
`

func (q *Queries) DeleteAllBudgets(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllBudgets)
	return err
}
