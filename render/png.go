package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	chart "github.com/wcharczuk/go-chart/v2"

	"polizas-dashboard/models"
)

const emptyLabel = "Sin datos"

// PNGSurface renders charts to PNG images with go-chart.
type PNGSurface struct {
	liveCounter
}

// NewPNGSurface returns an empty PNGSurface.
func NewPNGSurface() *PNGSurface { return &PNGSurface{} }

// Create renders cfg. The returned instance holds the image until destroyed.
func (s *PNGSurface) Create(cfg *models.ChartConfig) (Instance, error) {
	if cfg == nil {
		return nil, errors.New("render: nil chart config")
	}
	var buf bytes.Buffer
	if err := RenderPNG(cfg, &buf); err != nil {
		return nil, err
	}
	s.acquire()
	return &PNGInstance{cfg: cfg, png: buf.Bytes(), owner: &s.liveCounter}, nil
}

// PNGInstance is a rendered chart.
type PNGInstance struct {
	mu        sync.Mutex
	cfg       *models.ChartConfig
	png       []byte
	owner     *liveCounter
	destroyed bool
}

func (i *PNGInstance) Config() *models.ChartConfig { return i.cfg }

// PNG returns the encoded image, or nil after Destroy.
func (i *PNGInstance) PNG() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.png
}

func (i *PNGInstance) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return ErrDestroyed
	}
	i.destroyed = true
	i.png = nil
	i.owner.release()
	return nil
}

// RenderPNG draws cfg as a PNG image into w. A chart without data renders an
// empty-state placeholder rather than failing.
func RenderPNG(cfg *models.ChartConfig, w io.Writer) error {
	switch cfg.Kind {
	case models.ChartLines:
		c := lineChart(cfg)
		if err := c.Render(chart.PNG, w); err != nil {
			return fmt.Errorf("render: line chart: %w", err)
		}
	case models.ChartPie:
		c := pieChart(cfg)
		if err := c.Render(chart.PNG, w); err != nil {
			return fmt.Errorf("render: pie chart: %w", err)
		}
	default:
		return fmt.Errorf("render: %w: %q", models.ErrUnknownChartKind, cfg.Kind)
	}
	return nil
}

func lineChart(cfg *models.ChartConfig) chart.Chart {
	xs := make([]float64, 12)
	ticks := make([]chart.Tick, 12)
	for i := range xs {
		xs[i] = float64(i + 1)
		label := models.MonthNames[i]
		if cfg.XAxis != nil && i < len(cfg.XAxis.Categories) {
			label = cfg.XAxis.Categories[i]
		}
		ticks[i] = chart.Tick{Value: xs[i], Label: label}
	}

	peak := 0
	series := make([]chart.Series, 0, len(cfg.Series))
	for _, s := range cfg.Series {
		ys := make([]float64, 12)
		for m, v := range s.Data {
			ys[m] = float64(v)
			peak = max(peak, v)
		}
		series = append(series, chart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: ys})
	}
	if len(series) == 0 {
		series = append(series, chart.ContinuousSeries{Name: emptyLabel, XValues: xs, YValues: make([]float64, 12)})
	}

	yName := ""
	if cfg.YAxis != nil {
		yName = cfg.YAxis.Title.Text
	}

	c := chart.Chart{
		Title:      cfg.Title.Text,
		Width:      cfg.Chart.Width,
		Height:     cfg.Chart.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0.5, Max: 12.5},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(peak, 1))},
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return c
}

func pieChart(cfg *models.ChartConfig) chart.PieChart {
	values := make([]chart.Value, 0, len(cfg.Slices))
	for _, s := range cfg.Slices {
		if s.Value > 0 {
			values = append(values, chart.Value{Value: float64(s.Value), Label: fmt.Sprintf("%s (%d)", s.Label, s.Value)})
		}
	}
	if len(values) == 0 {
		values = append(values, chart.Value{Value: 1, Label: emptyLabel})
	}
	return chart.PieChart{
		Title:  cfg.Title.Text,
		Width:  cfg.Chart.Width,
		Height: cfg.Chart.Height,
		Values: values,
	}
}
