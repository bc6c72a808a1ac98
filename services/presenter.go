package services

import (
	"fmt"

	"polizas-dashboard/models"
)

// ChartOptions carries the wording and size of generated charts.
type ChartOptions struct {
	Width      int
	Height     int
	LinesTitle string
	PieTitle   string
	YAxisTitle string
}

// DefaultChartOptions matches the dashboard defaults.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Width:      900,
		Height:     420,
		LinesTitle: "Pólizas procesadas por mes",
		PieTitle:   "Pólizas por operadora",
		YAxisTitle: "Pólizas",
	}
}

// ToLineSeries returns one series per operator in discovery order, each with
// twelve counts in calendar order.
func ToLineSeries(tally *models.MonthlyOperatorTally) []models.LineSeries {
	ops := tally.Operators()
	out := make([]models.LineSeries, 0, len(ops))
	for _, op := range ops {
		months, _ := tally.Months(op)
		out = append(out, models.LineSeries{Name: op, Data: months})
	}
	return out
}

// ToPieSlices returns one slice per operator in discovery order.
func ToPieSlices(totals *models.OperatorTotals) []models.PieSlice {
	ops := totals.Operators()
	out := make([]models.PieSlice, 0, len(ops))
	for _, op := range ops {
		out = append(out, models.PieSlice{Label: op, Value: totals.Get(op)})
	}
	return out
}

// BuildChartConfig produces the charting configuration for kind.
func BuildChartConfig(kind models.ChartKind, agg *models.Aggregation, opts ChartOptions) (*models.ChartConfig, error) {
	cfg := &models.ChartConfig{
		Kind: kind,
		Chart: models.ChartFrame{
			Width:  opts.Width,
			Height: opts.Height,
		},
	}

	switch kind {
	case models.ChartLines:
		cfg.Chart.Type = "line"
		cfg.Title = models.ChartText{Text: opts.LinesTitle}
		cfg.Series = ToLineSeries(agg.Tally)
		cfg.XAxis = &models.XAxis{Categories: append([]string(nil), models.MonthNames[:]...)}
		cfg.YAxis = &models.YAxis{Title: models.ChartText{Text: opts.YAxisTitle}}
	case models.ChartPie:
		cfg.Chart.Type = "pie"
		cfg.Title = models.ChartText{Text: opts.PieTitle}
		cfg.Slices = ToPieSlices(agg.Totals)
	default:
		return nil, fmt.Errorf("presenter: %w: %q", models.ErrUnknownChartKind, kind)
	}
	return cfg, nil
}
