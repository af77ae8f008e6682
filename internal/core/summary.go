package core

import "github.com/shopspring/decimal"

// Budget status labels.
const (
	StatusGood    BudgetState = "good"
	StatusWarning BudgetState = "warning"
	StatusOver    BudgetState = "over"
)

// BudgetState classifies how much of a budget has been used.
type BudgetState string

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is the derived report over a date range.
type Summary struct {
	Range            DateRange
	TransactionCount int
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	NetSavings       decimal.Decimal
	// SavingsRate is a percentage; invalid when there is no income.
	SavingsRate       decimal.NullDecimal
	IncomeByCategory  []CategoryAmount
	ExpenseByCategory []CategoryAmount
}

// SavingsRateString renders the rate with one decimal, or N/A.
func (s Summary) SavingsRateString() string {
	if !s.SavingsRate.Valid {
		return "N/A"
	}
	return s.SavingsRate.Decimal.StringFixed(1) + "%"
}

// MonthTotals is one point of a monthly trend.
type MonthTotals struct {
	Month    Period
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// Net is income minus expenses for the month.
func (m MonthTotals) Net() decimal.Decimal {
	return m.Income.Sub(m.Expenses)
}

// BudgetStatus is the utilization of one budget.
type BudgetStatus struct {
	Category  string
	Period    Period
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	// PercentUsed is spent/limit*100 and is not clamped at 100.
	PercentUsed decimal.Decimal
	Status      BudgetState
}
