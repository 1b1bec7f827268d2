package availability

import (
	"context"
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

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var date *time.Time
	var label string

	err := row.Scan(
		&s.ID,
		&s.ClinicID,
		&s.DoctorID,
		&s.DayOfWeek,
		&date,
		&label,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Date = date
	window, err := ParseTimeRange(label)
	if err != nil {
		// Stored labels are validated on write; a bad one means manual edits.
		window = TimeRange{Start: label}
	}
	s.Window = window
	return &s, nil
}

func (r *PgRepository) collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpsertDateSlot(ctx context.Context, slot Slot) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability_slots
		SET day_of_week = $4,
		    available_time = $5,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND date = $2
		  AND available_time = $3
	`, slot.DoctorID, slot.Date, slot.Window.Label(), slot.DayOfWeek, slot.Window.Label())
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO availability_slots (id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, uuid.New(), slot.ClinicID, slot.DoctorID, slot.DayOfWeek, slot.Date, slot.Window.Label())
	return err
}

func (r *PgRepository) UpsertRecurringSlot(ctx context.Context, slot Slot) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability_slots
		SET available_time = $3,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND date IS NULL
		  AND day_of_week = $2
		  AND available_time = $3
	`, slot.DoctorID, slot.DayOfWeek, slot.Window.Label())
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO availability_slots (id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, now(), now())
	`, uuid.New(), slot.ClinicID, slot.DoctorID, slot.DayOfWeek, slot.Window.Label())
	return err
}

func (r *PgRepository) DeleteDateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeLabel string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1 AND date = $2 AND available_time = $3
	`, doctorID, date, timeLabel)
	return err
}

func (r *PgRepository) DeleteRecurringSlot(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, timeLabel string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1 AND date IS NULL AND day_of_week = $2 AND available_time = $3
	`, doctorID, dayOfWeek, timeLabel)
	return err
}

func (r *PgRepository) DeleteSlotsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1 AND date = $2
	`, doctorID, date)
	return err
}

func (r *PgRepository) DeleteRecurringForWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1 AND date IS NULL AND day_of_week = $2
	`, doctorID, dayOfWeek)
	return err
}

func (r *PgRepository) FindByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1 AND date = $2
		ORDER BY available_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return r.collectSlots(rows)
}

func (r *PgRepository) FindByWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1 AND date IS NULL AND day_of_week = $2
		ORDER BY available_time
	`, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	return r.collectSlots(rows)
}

func (r *PgRepository) FindDateSlotsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, available_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return r.collectSlots(rows)
}

func (r *PgRepository) HasAnySlots(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots WHERE doctor_id = $1
		)
	`, doctorID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) FindRecurring(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, doctor_id, day_of_week, date, available_time, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1 AND date IS NULL
		ORDER BY day_of_week, available_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return r.collectSlots(rows)
}
