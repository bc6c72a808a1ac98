package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"polizas-dashboard/models"
)

// csvColumns are the headers of a spreadsheet export of the policies table.
var csvColumns = []string{
	"id", "fecha_efectividad", "fecha_fin_cobertura", "operadora", "aplicantes",
	"estado", "cliente_id", "cliente_nombre", "tipo_registro",
}

// CSVSource serves policies from a spreadsheet export, applying the same
// predicate the database query applies.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source reading path on every fetch.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// FetchPolicies reads the file and returns the rows matching q. A row whose
// effective date cannot be parsed is kept so that aggregation can report it.
func (s *CSVSource) FetchPolicies(ctx context.Context, q PolicyQuery) ([]*models.RawPolicyRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()
	return s.read(ctx, f, &q)
}

// ReadAll returns every row of the file without applying a query.
func (s *CSVSource) ReadAll(ctx context.Context) ([]*models.RawPolicyRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()
	return s.read(ctx, f, nil)
}

// read parses the export. A nil q keeps every row.
func (s *CSVSource) read(ctx context.Context, r io.Reader, q *PolicyQuery) ([]*models.RawPolicyRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["id"]; !ok {
		return nil, errors.New("csv: header has no id column")
	}

	// Casers keep state, so each read gets its own.
	fold := cases.Fold()
	var want string
	if q != nil {
		want = fold.String(strings.TrimSpace(q.Status))
	}
	var result []*models.RawPolicyRow
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}

		cell := func(col string) *string {
			i, ok := index[col]
			if !ok || i >= len(record) || strings.TrimSpace(record[i]) == "" {
				return nil
			}
			v := record[i]
			return &v
		}

		row := &models.RawPolicyRow{
			EffectiveDate:    cell("fecha_efectividad"),
			CoverageEndDate:  cell("fecha_fin_cobertura"),
			Operator:         cell("operadora"),
			Applicants:       cell("aplicantes"),
			Status:           cell("estado"),
			ClientID:         cell("cliente_id"),
			ClientName:       cell("cliente_nombre"),
			RegistrationType: cell("tipo_registro"),
		}
		if id := cell("id"); id != nil {
			row.ID = *id
		}
		if q == nil || matches(fold, row, want, *q) {
			result = append(result, row)
		}
	}
	return result, nil
}

func matches(fold cases.Caser, row *models.RawPolicyRow, foldedStatus string, q PolicyQuery) bool {
	if row.Status == nil || fold.String(strings.TrimSpace(*row.Status)) != foldedStatus {
		return false
	}
	if row.EffectiveDate == nil {
		return false
	}
	if eff, err := models.ParseDate(*row.EffectiveDate); err == nil && eff.Before(q.EffectiveFrom) {
		return false
	}
	if row.CoverageEndDate == nil {
		return false
	}
	end, err := models.ParseDate(*row.CoverageEndDate)
	if err != nil || end.After(q.CoverageTo) {
		return false
	}
	return true
}

func (s *CSVSource) Close() error { return nil }
