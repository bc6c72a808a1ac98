package utils

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "polizas-dashboard"

// Metrics counts dashboard activity through OpenTelemetry. With no provider
// installed the global meter is a no-op.
type Metrics struct {
	loads         metric.Int64Counter
	fetchFailures metric.Int64Counter
	skipped       metric.Int64Counter
	renders       metric.Int64Counter
}

// NewMetrics registers the dashboard instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.loads, err = meter.Int64Counter("dashboard.loads",
		metric.WithDescription("Record source loads")); err != nil {
		return nil, err
	}
	if m.fetchFailures, err = meter.Int64Counter("dashboard.fetch_failures",
		metric.WithDescription("Record source loads that failed")); err != nil {
		return nil, err
	}
	if m.skipped, err = meter.Int64Counter("dashboard.records_skipped",
		metric.WithDescription("Policies skipped for an unparseable effective date")); err != nil {
		return nil, err
	}
	if m.renders, err = meter.Int64Counter("dashboard.renders",
		metric.WithDescription("Charts rendered")); err != nil {
		return nil, err
	}
	return &m, nil
}

// DefaultMetrics registers the instruments on the global meter provider.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(meterName))
	if err != nil {
		// The global meter only fails on invalid instrument names.
		panic(err)
	}
	return m
}

func (m *Metrics) RecordLoad(ctx context.Context, err error) {
	m.loads.Add(ctx, 1)
	if err != nil {
		m.fetchFailures.Add(ctx, 1)
	}
}

func (m *Metrics) RecordSkipped(ctx context.Context, n int) {
	if n > 0 {
		m.skipped.Add(ctx, int64(n))
	}
}

func (m *Metrics) RecordRender(ctx context.Context, kind string) {
	m.renders.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
