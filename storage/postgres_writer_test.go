package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polizas-dashboard/models"
)

func strp(s string) *string { return &s }

func TestPostgresWriterWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := NewPostgresWriterFromDB(db, nil)
	rows := []*models.RawPolicyRow{
		{ID: "P1", EffectiveDate: strp("2026-01-15"), Operator: strp("A"), Status: strp("tramitada"),
			ClientID: strp("C1"), ClientName: strp("Ana"), RegistrationType: strp("individual")},
		{ID: "P2", EffectiveDate: strp("2026-02-01"), Operator: strp("B"), Status: strp("tramitada"),
			ClientID: strp("C1"), ClientName: strp("Ana"), RegistrationType: strp("individual")},
		{ID: "P3", Operator: strp("B")},
		{ID: "  "},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM polizas").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM clientes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clientes (id, nombre, tipo_registro) VALUES ($1,$2,$3)")).
		WithArgs("C1", "Ana", "individual").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO polizas")).
		WithArgs(
			"P1", "2026-01-15", nil, "A", nil, "tramitada", "C1",
			"P2", "2026-02-01", nil, "B", nil, "tramitada", "C1",
			"P3", nil, nil, "B", nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, w.Write(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := NewPostgresWriterFromDB(db, nil)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM polizas").WillReturnError(boom)
	mock.ExpectRollback()

	err = w.Write(context.Background(), []*models.RawPolicyRow{{ID: "P1"}})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS clientes").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewPostgresWriterFromDB(db, nil).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterStoresISODates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := NewPostgresWriterFromDB(db, nil)
	rows := []*models.RawPolicyRow{
		{ID: "P1", EffectiveDate: strp("15/03/2026"), CoverageEndDate: strp("2026-12-31T00:00:00Z")},
		{ID: "P2", EffectiveDate: strp("no-es-fecha"), CoverageEndDate: strp(" 2026-06-30 ")},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM polizas").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM clientes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO polizas")).
		WithArgs(
			"P1", "2026-03-15", "2026-12-31", nil, nil, nil, nil,
			"P2", "no-es-fecha", "2026-06-30", nil, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, w.Write(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Stored values order correctly against the fetch bounds.
	q := DefaultQuery()
	assert.GreaterOrEqual(t, "2026-03-15", q.EffectiveFrom.Format(time.DateOnly))
	assert.LessOrEqual(t, "2026-12-31", q.CoverageTo.Format(time.DateOnly))
}
