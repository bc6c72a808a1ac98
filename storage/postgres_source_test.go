package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyColumns = []string{
	"id", "fecha_efectividad", "fecha_fin_cobertura", "operadora", "aplicantes",
	"estado", "id", "nombre", "tipo_registro",
}

func TestPostgresSourceFetchPolicies(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src := NewPostgresSourceFromDB(db, nil)

	rows := sqlmock.NewRows(policyColumns).
		AddRow("P1", "2026-01-15", "2026-12-01", "Seguros A", "2", "Tramitada", "C1", "Ana", "individual").
		AddRow("P2", "2026-03-02", "2026-11-30", "Seguros B", nil, "TRAMITADA", nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM polizas p LEFT JOIN clientes c ON c.id = p.cliente_id")).
		WithArgs("tramitada", "2026-01-01", "2026-12-31").
		WillReturnRows(rows)

	got, err := src.FetchPolicies(context.Background(), DefaultQuery())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "P1", got[0].ID)
	assert.Equal(t, "2026-01-15", *got[0].EffectiveDate)
	assert.Equal(t, "individual", *got[0].RegistrationType)
	assert.Equal(t, "Seguros B", *got[1].Operator)
	assert.Nil(t, got[1].Applicants)
	assert.Nil(t, got[1].ClientID, "LEFT JOIN without client should scan as nil")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceFetchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src := NewPostgresSourceFromDB(db, nil)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM polizas p")).WillReturnError(boom)

	_, err = src.FetchPolicies(context.Background(), DefaultQuery())
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src := NewPostgresSourceFromDB(db, nil)
	rows := sqlmock.NewRows(policyColumns).
		AddRow("P1", "2026-01-15", "2026-12-01", "A", "1", "tramitada", "C1", "Ana", "individual").
		RowError(0, errors.New("bad row"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM polizas p")).WillReturnRows(rows)

	_, err = src.FetchPolicies(context.Background(), DefaultQuery())
	assert.Error(t, err)
}

func TestPostgresSourceClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()
	src := NewPostgresSourceFromDB(db, nil)
	assert.NoError(t, src.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
