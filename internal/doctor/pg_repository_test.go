package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var doctorCols = []string{"id", "clinic_id", "name", "specialization_id", "created_at", "updated_at"}

func TestPgRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, clinic_id, name, specialization_id, created_at, updated_at\s+FROM doctors`).
		WithArgs(id, clinicID).
		WillReturnRows(pgxmock.NewRows(doctorCols).AddRow(id, clinicID, "Dr. Chen", nil, now, now))

	repo := NewPgRepository(mock)
	d, err := repo.Get(context.Background(), clinicID, id)
	require.NoError(t, err)
	require.Equal(t, "Dr. Chen", d.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGet_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id, clinic_id, name, specialization_id, created_at, updated_at\s+FROM doctors`).
		WithArgs(id, clinicID).
		WillReturnRows(pgxmock.NewRows(doctorCols))

	repo := NewPgRepository(mock)
	_, err = repo.Get(context.Background(), clinicID, id)
	require.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestPgRepositoryDelete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()

	mock.ExpectExec(`DELETE FROM doctors`).
		WithArgs(id, clinicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPgRepository(mock)
	require.ErrorIs(t, repo.Delete(context.Background(), clinicID, id), ErrDoctorNotFound)
}

func TestRewriteAppointmentDoctorName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clinicID := uuid.New()

	mock.ExpectExec(`UPDATE appointments\s+SET doctor_name = \$3`).
		WithArgs(clinicID, "Dr. Old", "Dr. New").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	repo := NewPgRepository(mock)
	n, err := repo.RewriteAppointmentDoctorName(context.Background(), clinicID, "Dr. Old", "Dr. New")
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearAppointmentDoctorID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clinicID, doctorID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE appointments\s+SET doctor_id = NULL`).
		WithArgs(clinicID, doctorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	repo := NewPgRepository(mock)
	n, err := repo.ClearAppointmentDoctorID(context.Background(), clinicID, doctorID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
