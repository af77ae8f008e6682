package charts

import (
	"fmt"
	"io"
	"math"

	"fintrack/internal/core"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var palette = []drawing.Color{
	{R: 77, G: 184, B: 255, A: 255},  // Blue
	{R: 250, G: 134, B: 94, A: 255},  // Orange
	{R: 165, G: 235, B: 91, A: 255},  // Green
	{R: 252, G: 201, B: 100, A: 255}, // Yellow
	{R: 208, G: 134, B: 255, A: 255}, // Purple
}

func color(i int) drawing.Color {
	return palette[i%len(palette)]
}

var padding = chart.Style{
	Padding: chart.Box{
		Top:    50,
		Left:   20,
		Right:  20,
		Bottom: 30,
	},
}

// Render draws ds as a chart of kind onto w.
func Render(w io.Writer, kind Kind, ds Dataset, opts Options) error {
	if err := ds.validate(); err != nil {
		return err
	}
	opts = opts.withDefaults()

	switch kind {
	case Pie:
		return renderPie(w, ds, opts)
	case Line:
		return renderLine(w, ds, opts)
	case Bar:
		return renderBar(w, ds, opts)
	}
	return core.Invalid("chart", fmt.Sprintf("%q is not pie, line or bar", kind))
}

func provider(f Format) chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// A pie cannot show negative or zero slices, so those are dropped.
func renderPie(w io.Writer, ds Dataset, opts Options) error {
	var values []chart.Value
	for i, label := range ds.Labels {
		v := ds.Series[0].Values[i]
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: color(len(values)), StrokeColor: drawing.ColorWhite},
		})
	}
	if len(values) == 0 {
		return core.ErrEmptyDataset
	}

	pie := chart.PieChart{
		Title:      ds.Title,
		Background: padding,
		Width:      opts.Width,
		Height:     opts.Height,
		Values:     values,
	}
	return pie.Render(provider(opts.Format), w)
}

func renderBar(w io.Writer, ds Dataset, opts Options) error {
	bars := make([]chart.Value, 0, len(ds.Labels))
	lo, hi := 0.0, 0.0
	for i, label := range ds.Labels {
		v := ds.Series[0].Values[i]
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars = append(bars, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: color(i), StrokeColor: color(i), StrokeWidth: 0},
		})
	}

	bc := chart.BarChart{
		Title:        ds.Title,
		Background:   padding,
		Width:        opts.Width,
		Height:       opts.Height,
		BarWidth:     barWidth(opts.Width, len(bars)),
		Bars:         bars,
		UseBaseValue: lo < 0,
		BaseValue:    0,
	}
	bc.YAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
	bc.YAxis.ValueFormatter = amountFormatter
	return bc.Render(provider(opts.Format), w)
}

func barWidth(width, n int) int {
	if n == 0 {
		return 40
	}
	bw := width / (2 * n)
	if bw > 80 {
		return 80
	}
	if bw < 8 {
		return 8
	}
	return bw
}

func renderLine(w io.Writer, ds Dataset, opts Options) error {
	n := len(ds.Labels)
	xs := make([]float64, n)
	ticks := make([]chart.Tick, 0, n+1)
	for i, label := range ds.Labels {
		xs[i] = float64(i)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: label})
	}
	if n == 1 {
		// a single month still needs a non-zero x range
		ticks = append(ticks, chart.Tick{Value: 1})
	}

	hi := 0.0
	series := make([]chart.Series, 0, len(ds.Series))
	for i, s := range ds.Series {
		for _, v := range s.Values {
			hi = math.Max(hi, v)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: color(i),
				StrokeWidth: 2,
				DotColor:    color(i),
				DotWidth:    4,
			},
		})
	}
	if hi <= 0 {
		return core.ErrEmptyDataset
	}

	graph := chart.Chart{
		Title:      ds.Title,
		Background: padding,
		Width:      opts.Width,
		Height:     opts.Height,
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(n-1), 1)},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: hi},
			ValueFormatter: amountFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(provider(opts.Format), w)
}

func amountFormatter(v interface{}) string {
	if vf, isFloat := v.(float64); isFloat {
		return fmt.Sprintf("%.0f", vf)
	}
	return ""
}
