package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

const fetchPoliciesQuery = `
		SELECT p.id, p.fecha_efectividad, p.fecha_fin_cobertura, p.operadora,
		       p.aplicantes, p.estado, c.id, c.nombre, c.tipo_registro
		FROM polizas p
		LEFT JOIN clientes c ON c.id = p.cliente_id
		WHERE LOWER(p.estado) = LOWER($1)
		  AND p.fecha_efectividad IS NOT NULL
		  AND p.fecha_efectividad >= $2
		  AND p.fecha_fin_cobertura <= $3
		ORDER BY p.id`

// PostgresSource reads policies and their clients from PostgreSQL.
type PostgresSource struct {
	db    *sql.DB
	retry *utils.RetryConfig
}

// NewPostgresSource opens a connection to PostgreSQL, waits for it to answer
// and returns a ready-to-use PostgresSource.
func NewPostgresSource(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ps := NewPostgresSourceFromDB(db, retry)
	err = ps.retry.Do(ctx, "postgres-ping", func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return ps, nil
}

// NewPostgresSourceFromDB wraps an already opened database handle.
func NewPostgresSourceFromDB(db *sql.DB, retry *utils.RetryConfig) *PostgresSource {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	return &PostgresSource{db: db, retry: retry}
}

// FetchPolicies runs the dashboard query. Columns are scanned as nullable
// text so a malformed value in one row never fails the whole read.
func (ps *PostgresSource) FetchPolicies(ctx context.Context, q PolicyQuery) ([]*models.RawPolicyRow, error) {
	var out []*models.RawPolicyRow
	err := ps.retry.Do(ctx, "postgres-fetch-policies", func() error {
		rows, err := ps.fetch(ctx, q)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ps *PostgresSource) fetch(ctx context.Context, q PolicyQuery) ([]*models.RawPolicyRow, error) {
	rows, err := ps.db.QueryContext(ctx, fetchPoliciesQuery,
		q.Status, q.EffectiveFrom.Format(time.DateOnly), q.CoverageTo.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch policies: %w", err)
	}
	defer rows.Close()

	var result []*models.RawPolicyRow
	for rows.Next() {
		var r models.RawPolicyRow
		var effective, coverage, operator, applicants sql.NullString
		var status, clientID, clientName, registrationType sql.NullString
		if err := rows.Scan(
			&r.ID, &effective, &coverage, &operator, &applicants,
			&status, &clientID, &clientName, &registrationType,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.EffectiveDate = nullable(effective)
		r.CoverageEndDate = nullable(coverage)
		r.Operator = nullable(operator)
		r.Applicants = nullable(applicants)
		r.Status = nullable(status)
		r.ClientID = nullable(clientID)
		r.ClientName = nullable(clientName)
		r.RegistrationType = nullable(registrationType)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate rows: %w", err)
	}
	return result, nil
}

func (ps *PostgresSource) Close() error {
	return ps.db.Close()
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
