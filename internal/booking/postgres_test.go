package booking

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs("APT-1", "Anna Muster", "+4930111111", "Kontrolluntersuchung",
			"2025-01-15", "10:00", 30, "confirmed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Save(context.Background(), Appointment{
		Code:        "APT-1",
		PatientName: "Anna Muster",
		Phone:       "+4930111111",
		Treatment:   "Kontrolluntersuchung",
		Date:        "2025-01-15",
		Time:        "10:00",
		Duration:    30 * time.Minute,
		Status:      StatusConfirmed,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM appointments WHERE code`).
		WithArgs("APT-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"code", "patient_name", "phone", "treatment", "date", "time",
			"duration_minutes", "status", "created_at",
		}).AddRow("APT-1", "Anna Muster", "+4930111111", "Kontrolluntersuchung",
			"2025-01-15", "10:00", 30, "confirmed", created))

	a, err := store.Get(context.Background(), "APT-1")
	require.NoError(t, err)
	assert.Equal(t, "Anna Muster", a.PatientName)
	assert.Equal(t, 30*time.Minute, a.Duration)
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM appointments WHERE code`).
		WithArgs("APT-missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "APT-missing")
	assert.ErrorIs(t, err, ErrCodeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ByPhone(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM appointments\s+WHERE phone`).
		WithArgs("+4930111111").
		WillReturnRows(pgxmock.NewRows([]string{
			"code", "patient_name", "phone", "treatment", "date", "time",
			"duration_minutes", "status", "created_at",
		}).AddRow("APT-1", "Anna Muster", "+4930111111", "Zahnreinigung",
			"2025-01-15", "14:00", 60, "confirmed", created))

	all, err := store.ByPhone(context.Background(), "+4930111111")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "+4930111111", all[0].Phone)
	assert.Equal(t, "Zahnreinigung", all[0].Treatment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ByDate(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM appointments\s+WHERE date`).
		WithArgs("2025-01-15").
		WillReturnRows(pgxmock.NewRows([]string{
			"code", "patient_name", "phone", "treatment", "date", "time",
			"duration_minutes", "status", "created_at",
		}).
			AddRow("APT-1", "Anna Muster", "", "Kontrolluntersuchung", "2025-01-15", "09:00", 30, "confirmed", created).
			AddRow("APT-2", "Ben Beispiel", "", "Zahnreinigung", "2025-01-15", "10:00", 60, "confirmed", created))

	all, err := store.ByDate(context.Background(), "2025-01-15")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "09:00", all[0].Time)
	assert.Equal(t, 60*time.Minute, all[1].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}
