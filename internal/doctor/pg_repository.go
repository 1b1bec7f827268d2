package doctor

import (
	"context"
	"errors"

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

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&d.SpecializationID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, specialization_id, created_at, updated_at
		FROM doctors
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanDoctor(row)
}

func (r *PgRepository) GetByName(ctx context.Context, clinicID uuid.UUID, name string) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, specialization_id, created_at, updated_at
		FROM doctors
		WHERE clinic_id = $1 AND name = $2
		LIMIT 1
	`, clinicID, name)
	return scanDoctor(row)
}

func (r *PgRepository) List(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, name, specialization_id, created_at, updated_at
		FROM doctors
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) Create(ctx context.Context, d Doctor) (*Doctor, error) {
	id := d.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO doctors (id, clinic_id, name, specialization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, clinic_id, name, specialization_id, created_at, updated_at
	`, id, d.ClinicID, d.Name, d.SpecializationID)
	return scanDoctor(row)
}

func (r *PgRepository) Update(ctx context.Context, clinicID, id uuid.UUID, name string, specializationID *uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE doctors
		SET name = $3,
		    specialization_id = $4,
		    updated_at = now()
		WHERE id = $1 AND clinic_id = $2
		RETURNING id, clinic_id, name, specialization_id, created_at, updated_at
	`, id, clinicID, name, specializationID)
	return scanDoctor(row)
}

func (r *PgRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM doctors
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) ListSpecializations(ctx context.Context, clinicID uuid.UUID) ([]Specialization, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, name
		FROM specializations
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Specialization
	for rows.Next() {
		var s Specialization
		if err := rows.Scan(&s.ID, &s.ClinicID, &s.Name); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) RewriteAppointmentDoctorName(ctx context.Context, clinicID uuid.UUID, oldName, newName string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET doctor_name = $3,
		    updated_at = now()
		WHERE clinic_id = $1 AND doctor_name = $2
	`, clinicID, oldName, newName)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ClearAppointmentDoctorID(ctx context.Context, clinicID, doctorID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET doctor_id = NULL,
		    updated_at = now()
		WHERE clinic_id = $1 AND doctor_id = $2
	`, clinicID, doctorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
