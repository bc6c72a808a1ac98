package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

const importBatchSize = 50

// PostgresWriter loads policy rows into PostgreSQL, creating the polizas and
// clientes tables the dashboard reads from.
type PostgresWriter struct {
	db    *sql.DB
	retry *utils.RetryConfig
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	pw := NewPostgresWriterFromDB(db, retry)
	err = pw.retry.Do(ctx, "postgres-ping", func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := pw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

// NewPostgresWriterFromDB wraps an already opened database handle. It does not
// migrate.
func NewPostgresWriterFromDB(db *sql.DB, retry *utils.RetryConfig) *PostgresWriter {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	return &PostgresWriter{db: db, retry: retry}
}

// Migrate creates the tables and indexes when missing.
func (pw *PostgresWriter) Migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS clientes (
			id            TEXT PRIMARY KEY,
			nombre        TEXT NOT NULL DEFAULT '',
			tipo_registro TEXT
		);

		CREATE TABLE IF NOT EXISTS polizas (
			id                  TEXT PRIMARY KEY,
			fecha_efectividad   TEXT,
			fecha_fin_cobertura TEXT,
			operadora           TEXT,
			aplicantes          TEXT,
			estado              TEXT,
			cliente_id          TEXT REFERENCES clientes(id)
		);

		CREATE INDEX IF NOT EXISTS idx_polizas_estado     ON polizas(LOWER(estado));
		CREATE INDEX IF NOT EXISTS idx_polizas_efectividad ON polizas(fecha_efectividad);
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func clearTables(ctx context.Context, ex execer) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM polizas"); err != nil {
		return fmt.Errorf("postgres: clear polizas: %w", err)
	}
	if _, err := ex.ExecContext(ctx, "DELETE FROM clientes"); err != nil {
		return fmt.Errorf("postgres: clear clientes: %w", err)
	}
	return nil
}

// Write replaces the stored data with rows. Clients are inserted first, once
// per client ID; policies follow in batches. Rows without an ID are skipped.
func (pw *PostgresWriter) Write(ctx context.Context, rows []*models.RawPolicyRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	clients, policies := splitRows(rows)
	for i := 0; i < len(clients); i += importBatchSize {
		end := min(i+importBatchSize, len(clients))
		if err := insertBatch(ctx, tx, clientInsert, clients[i:end]); err != nil {
			return fmt.Errorf("postgres: insert clientes: %w", err)
		}
	}
	for i := 0; i < len(policies); i += importBatchSize {
		end := min(i+importBatchSize, len(policies))
		if err := insertBatch(ctx, tx, policyInsert, policies[i:end]); err != nil {
			return fmt.Errorf("postgres: insert polizas: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

type insertStmt struct {
	prefix string
	suffix string
	width  int
}

var (
	clientInsert = insertStmt{
		prefix: "INSERT INTO clientes (id, nombre, tipo_registro) VALUES ",
		suffix: " ON CONFLICT (id) DO NOTHING",
		width:  3,
	}
	policyInsert = insertStmt{
		prefix: "INSERT INTO polizas (id, fecha_efectividad, fecha_fin_cobertura, operadora, aplicantes, estado, cliente_id) VALUES ",
		suffix: " ON CONFLICT (id) DO NOTHING",
		width:  7,
	}
)

// splitRows turns joined rows into client and policy value tuples.
func splitRows(rows []*models.RawPolicyRow) (clients, policies [][]any) {
	seen := make(map[string]bool)
	for _, r := range rows {
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		var clientID any
		if r.ClientID != nil && strings.TrimSpace(*r.ClientID) != "" {
			id := strings.TrimSpace(*r.ClientID)
			clientID = id
			if !seen[id] {
				seen[id] = true
				name := ""
				if r.ClientName != nil {
					name = *r.ClientName
				}
				clients = append(clients, []any{id, name, nullArg(r.RegistrationType)})
			}
		}
		policies = append(policies, []any{
			r.ID, isoDate(r.EffectiveDate), isoDate(r.CoverageEndDate), nullArg(r.Operator),
			nullArg(r.Applicants), nullArg(r.Status), clientID,
		})
	}
	return clients, policies
}

func insertBatch(ctx context.Context, tx execer, stmt insertStmt, batch [][]any) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*stmt.width)

	for idx, values := range batch {
		placeholders := make([]string, stmt.width)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*stmt.width+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, values...)
	}

	query := stmt.prefix + strings.Join(valueStrings, ",") + stmt.suffix
	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// isoDate stores a parseable date as YYYY-MM-DD so the range filter of the
// fetch query, which compares text, orders it correctly. Anything else is kept
// verbatim for aggregation to report.
func isoDate(s *string) any {
	if s == nil {
		return nil
	}
	if d, err := models.ParseDate(*s); err == nil {
		return d.Format(time.DateOnly)
	}
	return *s
}

func nullArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
