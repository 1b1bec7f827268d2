package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Satisfied by
// pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) DailyStats(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DailyStats, error) {
	stats := DailyStats{
		ClinicID:   clinicID,
		Date:       date.Format("2006-01-02"),
		ComputedAt: time.Now().UTC(),
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'approved'),
			count(*) FILTER (WHERE status = 'declined'),
			count(*) FILTER (WHERE status = 'completed')
		FROM appointments
		WHERE clinic_id = $1 AND date = $2
	`, clinicID, date).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Approved,
		&stats.Declined,
		&stats.Completed,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *PgRepository) DoctorReports(ctx context.Context, clinicID uuid.UUID) ([]DoctorReport, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			COALESCE(doctor_name, 'Unknown'),
			count(*),
			count(*) FILTER (WHERE status = 'completed')
		FROM appointments
		WHERE clinic_id = $1
		GROUP BY COALESCE(doctor_name, 'Unknown')
		ORDER BY count(*) DESC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorReport
	for rows.Next() {
		var dr DoctorReport
		if err := rows.Scan(&dr.DoctorName, &dr.Total, &dr.Completed); err != nil {
			return nil, err
		}
		result = append(result, dr)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListClinicIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM clinics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgRepository) ClinicName(ctx context.Context, clinicID uuid.UUID) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `
		SELECT name FROM clinics WHERE id = $1
	`, clinicID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrClinicNotFound
		}
		return "", err
	}
	return name, nil
}
