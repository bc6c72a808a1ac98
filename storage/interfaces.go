package storage

import (
	"context"
	"time"

	"polizas-dashboard/models"
)

// PolicyQuery is the filtered read the dashboard issues against a record
// source: status matched case-insensitively, effective date present and on or
// after EffectiveFrom, coverage end on or before CoverageTo.
type PolicyQuery struct {
	Status        string
	EffectiveFrom time.Time
	CoverageTo    time.Time
}

// DefaultQuery is the query used by the dashboard home screen.
func DefaultQuery() PolicyQuery {
	return PolicyQuery{
		Status:        "tramitada",
		EffectiveFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		CoverageTo:    time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// PolicySource is the interface any record source must satisfy.
type PolicySource interface {
	FetchPolicies(ctx context.Context, q PolicyQuery) ([]*models.RawPolicyRow, error)
	Close() error
}

// TallyWriter is the interface for exporting aggregated data.
type TallyWriter interface {
	WriteTally(agg *models.Aggregation) error
	Close() error
}
