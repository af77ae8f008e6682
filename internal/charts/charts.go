// Package charts renders pie, line and bar charts with go-chart.
package charts

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Kind is the closed set of chart types.
type Kind string

const (
	Pie  Kind = "pie"
	Line Kind = "line"
	Bar  Kind = "bar"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Pie, Line, Bar:
		return k, nil
	}
	return "", core.Invalid("chart", fmt.Sprintf("%q is not pie, line or bar", s))
}

func (k Kind) String() string { return string(k) }

// Format is the output image encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", core.Invalid("format", fmt.Sprintf("%q is not png or svg", s))
}

// Options control image size and encoding; zero values use defaults.
type Options struct {
	Width  int
	Height int
	Format Format
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 640
	}
	if o.Format == "" {
		o.Format = PNG
	}
	return o
}

// Series is one named row of values aligned with Dataset.Labels.
type Series struct {
	Name   string
	Values []float64
}

// Dataset is chart input independent of the chart type. Pie and bar
// charts use the first series only.
type Dataset struct {
	Title  string
	Labels []string
	Series []Series
}

// Empty reports whether there is nothing non-zero to draw.
func (d Dataset) Empty() bool {
	if len(d.Labels) == 0 {
		return true
	}
	for _, s := range d.Series {
		for _, v := range s.Values {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func (d Dataset) validate() error {
	if d.Empty() {
		return core.ErrEmptyDataset
	}
	for _, s := range d.Series {
		if len(s.Values) != len(d.Labels) {
			return fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(d.Labels))
		}
	}
	return nil
}

// FromCategories builds a single-series dataset keyed by category name.
func FromCategories(title string, items []core.CategoryAmount) Dataset {
	ds := Dataset{Title: title, Series: []Series{{Name: "Amount"}}}
	for _, it := range items {
		ds.Labels = append(ds.Labels, it.Name)
		ds.Series[0].Values = append(ds.Series[0].Values, it.Amount.InexactFloat64())
	}
	return ds
}

// FromTrend builds income and expense series keyed by month.
func FromTrend(title string, months []core.MonthTotals) Dataset {
	ds := Dataset{Title: title, Series: []Series{{Name: "Income"}, {Name: "Expenses"}}}
	for _, m := range months {
		ds.Labels = append(ds.Labels, m.Month.String())
		ds.Series[0].Values = append(ds.Series[0].Values, m.Income.InexactFloat64())
		ds.Series[1].Values = append(ds.Series[1].Values, m.Expenses.InexactFloat64())
	}
	return ds
}

// FromBudgets builds a percent-used series keyed by category.
func FromBudgets(title string, statuses []core.BudgetStatus) Dataset {
	ds := Dataset{Title: title, Series: []Series{{Name: "Percent used"}}}
	for _, st := range statuses {
		ds.Labels = append(ds.Labels, st.Category)
		ds.Series[0].Values = append(ds.Series[0].Values, st.PercentUsed.InexactFloat64())
	}
	return ds
}
