package export

import (
	"context"
	"encoding/csv"
	"io"

	"fintrack/internal/core"
)

// Header is the first CSV row.
var Header = []string{"Date", "Type", "Category", "Description", "Amount"}

// CSV writes the transaction rows, a blank line and three total rows.
type CSV struct {
	w    io.Writer
	name string
}

func NewCSV(w io.Writer) *CSV {
	return &CSV{w: w, name: "csv"}
}

func (c *CSV) Destination() string { return c.name }

func (c *CSV) Export(_ context.Context, r Report) error {
	if err := WriteCSV(c.w, r); err != nil {
		return core.ExportFailure(c.name, err)
	}
	return nil
}

// Rows returns the report as CSV records, the blank separator included.
// The Sheets exporter writes the same rows.
func Rows(r Report) [][]string {
	rows := make([][]string, 0, len(r.Transactions)+5)
	rows = append(rows, Header)
	for _, t := range r.Transactions {
		rows = append(rows, []string{
			t.Date.String(),
			t.Kind.String(),
			t.Category,
			t.Description,
			core.FormatAmount(t.Signed()),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"Total Income", core.FormatAmount(r.Summary.TotalIncome)},
		[]string{"Total Expenses", core.FormatAmount(r.Summary.TotalExpenses)},
		[]string{"Net Savings", core.FormatAmount(r.Summary.NetSavings)},
	)
	return rows
}

func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	for _, rec := range Rows(r) {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
