package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type demoTransaction struct {
	day         int
	kind        core.Kind
	category    string
	description string
	amount      int64
}

var demoTransactions = []demoTransaction{
	{1, core.Income, "Salary", "Monthly salary", 3500},
	{2, core.Expense, "Groceries", "Weekly grocery shopping", 120},
	{3, core.Expense, "Transportation", "Gas for car", 45},
	{5, core.Expense, "Entertainment", "Movie tickets", 25},
	{7, core.Expense, "Utilities", "Electricity bill", 85},
	{10, core.Income, "Freelance", "Web design project", 500},
	{12, core.Expense, "Groceries", "Grocery shopping", 95},
	{13, core.Expense, "Healthcare", "Doctor visit", 75},
}

var demoBudgets = []struct {
	category string
	limit    int64
}{
	{"Groceries", 300},
	{"Transportation", 150},
	{"Entertainment", 100},
	{"Utilities", 200},
}

// SeedDemo adds a month of sample transactions and budgets to period and
// returns the number of transactions added.
func (t *Tracker) SeedDemo(ctx context.Context, period core.Period) (int, error) {
	if err := period.Validate(); err != nil {
		return 0, fmt.Errorf("seed demo: %w", err)
	}
	first := period.First()
	for i, d := range demoTransactions {
		_, err := t.AddTransaction(ctx, TransactionInput{
			Date:        first.AddDays(d.day - 1),
			Amount:      decimal.NewFromInt(d.amount),
			Kind:        d.kind,
			Category:    d.category,
			Description: d.description,
		})
		if err != nil {
			return i, fmt.Errorf("seed demo: %w", err)
		}
	}
	for _, b := range demoBudgets {
		if err := t.SetBudget(ctx, b.category, period, decimal.NewFromInt(b.limit)); err != nil {
			return len(demoTransactions), fmt.Errorf("seed demo: %w", err)
		}
	}
	return len(demoTransactions), nil
}
