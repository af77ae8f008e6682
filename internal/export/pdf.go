package export

import (
	"context"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/phpdave11/gofpdf"
)

const maxPDFRows = 500

// PDF renders an A4 statement: title, period, totals box and a
// transaction table.
type PDF struct {
	w     io.Writer
	Title string
}

func NewPDF(w io.Writer) *PDF {
	return &PDF{w: w, Title: "Personal Finance Statement"}
}

func (p *PDF) Destination() string { return "pdf" }

func (p *PDF) Export(_ context.Context, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	currency := r.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(p.Title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Period: "+r.Range.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Savings rate: "+r.Summary.SavingsRateString())
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	sumW := []float64{60, 61, 61}
	pdf.CellFormat(sumW[0], 10, "Income ("+currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Expenses ("+currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Net Savings ("+currency+")", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, core.FormatAmount(r.Summary.TotalIncome), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, core.FormatAmount(r.Summary.TotalExpenses), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, core.FormatAmount(r.Summary.NetSavings), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	colW := []float64{26, 22, 40, 64, 30}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "CATEGORY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[4], 8, "AMOUNT", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(r.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions in this period", "1", 1, "C", false, 0, "")
	}
	for i, t := range r.Transactions {
		if i >= maxPDFRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "... truncated (too many rows)", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(colW[0], 7, t.Date.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 7, strings.ToUpper(t.Kind.String()), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 7, tr(trimTo(t.Category, 22)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 7, tr(trimTo(t.Description, 38)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[4], 7, core.FormatAmount(t.Signed()), "1", 1, "R", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated by fintrack - "+generated.Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(p.w); err != nil {
		return core.ExportFailure("pdf", err)
	}
	return nil
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
