package cli

import (
	"fmt"
	"io"

	"fintrack/internal/core"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	return table
}

func printTransactions(w io.Writer, txs []core.Transaction) {
	table := newTable(w, "ID", "Date", "Type", "Category", "Description", "Amount", "Currency")
	for _, t := range txs {
		table.Append([]string{
			fmt.Sprint(t.ID),
			t.Date.String(),
			t.Kind.String(),
			t.Category,
			t.Description,
			core.FormatAmount(t.Signed()),
			t.Currency,
		})
	}
	table.SetFooter([]string{"", "", "", "", "", fmt.Sprintf("%d rows", len(txs)), ""})
	table.Render()
}

func printBudgets(w io.Writer, budgets []core.Budget) {
	table := newTable(w, "Period", "Category", "Limit")
	for _, b := range budgets {
		table.Append([]string{b.Period.String(), b.Category, core.FormatAmount(b.Limit)})
	}
	table.Render()
}

func printBudgetStatus(w io.Writer, statuses []core.BudgetStatus) {
	table := newTable(w, "Category", "Limit", "Spent", "Remaining", "Used", "Status")
	for _, s := range statuses {
		table.Append([]string{
			s.Category,
			core.FormatAmount(s.Limit),
			core.FormatAmount(s.Spent),
			core.FormatAmount(s.Remaining),
			s.PercentUsed.StringFixed(1) + "%",
			string(s.Status),
		})
	}
	table.Render()
}

func printSummary(w io.Writer, s core.Summary, currency string) {
	fmt.Fprintf(w, "Period:          %s\n", s.Range)
	fmt.Fprintf(w, "Transactions:    %d\n", s.TransactionCount)
	fmt.Fprintf(w, "Total Income:    %s %s\n", core.FormatAmount(s.TotalIncome), currency)
	fmt.Fprintf(w, "Total Expenses:  %s %s\n", core.FormatAmount(s.TotalExpenses), currency)
	fmt.Fprintf(w, "Net Savings:     %s %s\n", core.FormatAmount(s.NetSavings), currency)
	fmt.Fprintf(w, "Savings Rate:    %s\n", s.SavingsRateString())

	if len(s.ExpenseByCategory) > 0 {
		fmt.Fprintln(w, "\nExpenses by category:")
		printCategories(w, s.ExpenseByCategory)
	}
}

func printCategories(w io.Writer, items []core.CategoryAmount) {
	table := newTable(w, "Category", "Amount")
	for _, c := range items {
		table.Append([]string{c.Name, core.FormatAmount(c.Amount)})
	}
	table.Render()
}

func printTrend(w io.Writer, months []core.MonthTotals) {
	table := newTable(w, "Month", "Income", "Expenses", "Net")
	for _, m := range months {
		table.Append([]string{
			m.Month.String(),
			core.FormatAmount(m.Income),
			core.FormatAmount(m.Expenses),
			core.FormatAmount(m.Net()),
		})
	}
	table.Render()
}
