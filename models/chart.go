package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChartKind is returned for a chart kind other than lines or pie.
var ErrUnknownChartKind = errors.New("unknown chart kind")

// ChartKind selects the chart drawn for the current filters.
type ChartKind string

const (
	ChartLines ChartKind = "lines"
	ChartPie   ChartKind = "pie"
)

// ParseChartKind maps a radio value to a ChartKind. An empty value means lines.
func ParseChartKind(s string) (ChartKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ChartLines):
		return ChartLines, nil
	case string(ChartPie):
		return ChartPie, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartKind, s)
}

// LineSeries is one operator's line: twelve counts in calendar order.
type LineSeries struct {
	Name string  `json:"name"`
	Data [12]int `json:"data"`
}

// PieSlice is one operator's share of the pie.
type PieSlice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ChartFrame carries the chart type and dimensions.
type ChartFrame struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ChartText is a titled element.
type ChartText struct {
	Text string `json:"text"`
}

// XAxis lists the category labels of a line chart.
type XAxis struct {
	Categories []string `json:"categories"`
}

// YAxis carries the y-axis title of a line chart.
type YAxis struct {
	Title ChartText `json:"title"`
}

// ChartConfig is the configuration handed to the charting component.
// Series is set for line charts, Slices for pie charts.
type ChartConfig struct {
	Kind   ChartKind    `json:"-"`
	Chart  ChartFrame   `json:"chart"`
	Title  ChartText    `json:"title"`
	XAxis  *XAxis       `json:"xaxis,omitempty"`
	YAxis  *YAxis       `json:"yaxis,omitempty"`
	Series []LineSeries `json:"-"`
	Slices []PieSlice   `json:"-"`
}

// MarshalJSON emits series in the layout each chart type expects: named data
// arrays for lines, bare values plus a labels array for pies.
func (c ChartConfig) MarshalJSON() ([]byte, error) {
	type plain ChartConfig
	out := struct {
		plain
		Kind   ChartKind `json:"kind"`
		Series any       `json:"series"`
		Labels []string  `json:"labels,omitempty"`
	}{plain: plain(c), Kind: c.Kind}

	switch c.Kind {
	case ChartPie:
		values := make([]int, len(c.Slices))
		labels := make([]string, len(c.Slices))
		for i, s := range c.Slices {
			values[i] = s.Value
			labels[i] = s.Label
		}
		out.Series = values
		out.Labels = labels
	default:
		series := c.Series
		if series == nil {
			series = []LineSeries{}
		}
		out.Series = series
	}
	return json.Marshal(out)
}

// FilterState mirrors the dashboard controls.
type FilterState struct {
	RegistrationTypes []string  `json:"registration_types"`
	Kind              ChartKind `json:"kind"`
	NextMonthOnly     bool      `json:"next_month_only"`
}

// ViewState is the controller state.
type ViewState string

const (
	StateIdle     ViewState = "idle"
	StateLoading  ViewState = "loading"
	StateRendered ViewState = "rendered"
	StateError    ViewState = "error"
)

// DashboardView is everything one render produces.
type DashboardView struct {
	State    ViewState    `json:"state"`
	Filters  FilterState  `json:"filters"`
	Chart    *ChartConfig `json:"chart,omitempty"`
	Stats    Stats        `json:"stats"`
	Warnings []string     `json:"warnings,omitempty"`
}
