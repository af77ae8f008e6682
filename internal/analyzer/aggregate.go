// Package analyzer derives summaries, category breakdowns, budget
// utilization and monthly trends from stored transactions.
package analyzer

import (
	"sort"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize computes the summary of txs. It never fails; an empty slice
// yields zero totals and an N/A savings rate.
func Summarize(txs []core.Transaction, r core.DateRange) core.Summary {
	s := core.Summary{
		Range:            r,
		TransactionCount: len(txs),
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.NetSavings = s.TotalIncome.Sub(s.TotalExpenses)
	s.SavingsRate = SavingsRate(s.TotalIncome, s.NetSavings)
	s.IncomeByCategory = ByCategory(txs, core.Income)
	s.ExpenseByCategory = ByCategory(txs, core.Expense)
	return s
}

// SavingsRate is net/income*100, or invalid when there is no income.
func SavingsRate(income, net decimal.Decimal) decimal.NullDecimal {
	if !income.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(net.Mul(hundred).DivRound(income, 4))
}

// ByCategory sums the magnitudes of one kind per category.
func ByCategory(txs []core.Transaction, kind core.Kind) []core.CategoryAmount {
	return group(txs, func(t core.Transaction) (decimal.Decimal, bool) {
		return t.Amount, t.Kind == kind
	})
}

// NetByCategory sums signed amounts per category; the sum over all
// categories equals net savings.
func NetByCategory(txs []core.Transaction) []core.CategoryAmount {
	return group(txs, func(t core.Transaction) (decimal.Decimal, bool) {
		return t.Signed(), true
	})
}

// group folds amounts by case-insensitive category, keeping the first
// spelling seen, and orders the result by name.
func group(txs []core.Transaction, pick func(core.Transaction) (decimal.Decimal, bool)) []core.CategoryAmount {
	idx := map[string]int{}
	var out []core.CategoryAmount
	for _, t := range txs {
		amt, ok := pick(t)
		if !ok {
			continue
		}
		key := core.CategoryKey(t.Category)
		i, seen := idx[key]
		if !seen {
			idx[key] = len(out)
			out = append(out, core.CategoryAmount{Name: t.Category, Amount: amt})
			continue
		}
		out[i].Amount = out[i].Amount.Add(amt)
	}
	sort.Slice(out, func(i, j int) bool {
		return core.CategoryKey(out[i].Name) < core.CategoryKey(out[j].Name)
	})
	return out
}

// Trend returns one zero-filled entry per month from first to last inclusive.
func Trend(txs []core.Transaction, first, last core.Period) []core.MonthTotals {
	if last.Before(first) {
		return nil
	}
	var months []core.MonthTotals
	pos := map[core.Period]int{}
	for p := first; !last.Before(p); p = p.Next() {
		pos[p] = len(months)
		months = append(months, core.MonthTotals{Month: p, Income: decimal.Zero, Expenses: decimal.Zero})
	}
	for _, t := range txs {
		i, ok := pos[t.Date.Period()]
		if !ok {
			continue
		}
		switch t.Kind {
		case core.Income:
			months[i].Income = months[i].Income.Add(t.Amount)
		case core.Expense:
			months[i].Expenses = months[i].Expenses.Add(t.Amount)
		}
	}
	return months
}

// Utilization compares one budget with the expenses recorded against it.
// Percent is not clamped; a zero limit reports 0%.
func Utilization(b core.Budget, txs []core.Transaction, warningPercent decimal.Decimal) core.BudgetStatus {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Kind == core.Expense && core.CategoryKey(t.Category) == core.CategoryKey(b.Category) && t.Date.Period() == b.Period {
			spent = spent.Add(t.Amount)
		}
	}

	st := core.BudgetStatus{
		Category:    b.Category,
		Period:      b.Period,
		Limit:       b.Limit,
		Spent:       spent,
		Remaining:   b.Limit.Sub(spent),
		PercentUsed: decimal.Zero,
	}
	if b.Limit.IsPositive() {
		st.PercentUsed = spent.Mul(hundred).DivRound(b.Limit, 2)
	}

	switch {
	case st.Remaining.IsNegative():
		st.Status = core.StatusOver
	case st.PercentUsed.GreaterThan(warningPercent):
		st.Status = core.StatusWarning
	default:
		st.Status = core.StatusGood
	}
	return st
}

// Bounds returns the first and last month spanned by txs, which must be
// ordered by date.
func Bounds(txs []core.Transaction) (core.Period, core.Period, bool) {
	if len(txs) == 0 {
		return core.Period{}, core.Period{}, false
	}
	return txs[0].Date.Period(), txs[len(txs)-1].Date.Period(), true
}
