package appointment

import (
	"context"
	"errors"
	"fmt"
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
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, clinic_id, user_id, patient_name, patient_age, patient_gender,
		blood_type, patient_identity, date, time, reason, specialization_id,
		doctor_id, doctor_name, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.UserID,
		&a.PatientName,
		&a.PatientAge,
		&a.PatientGender,
		&a.BloodType,
		&a.PatientIdentity,
		&a.Date,
		&a.Time,
		&a.Reason,
		&a.SpecializationID,
		&a.DoctorID,
		&a.DoctorName,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Address,
		&p.Gender,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanAppointment(row)
}

func (r *PgRepository) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE clinic_id = $1`
	args := []any{clinicID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.DoctorName != "" {
		args = append(args, filter.DoctorName)
		query += fmt.Sprintf(" AND doctor_name = $%d", len(args))
	}

	if filter.Oldest {
		query += " ORDER BY created_at ASC"
	} else {
		query += " ORDER BY created_at DESC"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, clinicID, to, from)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		// Distinguish a missing row from a lost CAS race.
		if _, getErr := r.GetAppointment(ctx, clinicID, id); getErr == nil {
			return nil, ErrStatusConflict
		}
		return nil, ErrAppointmentNotFound
	}
	return appt, err
}

func (r *PgRepository) SetDoctor(ctx context.Context, clinicID, id, doctorID uuid.UUID, doctorName string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET doctor_id = $3,
		    doctor_name = $4,
		    updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID, doctorID, doctorName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ResolveDoctorID(ctx context.Context, clinicID uuid.UUID, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT id
		FROM doctors
		WHERE clinic_id = $1 AND name = $2
		LIMIT 1
	`, clinicID, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrDoctorNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PgRepository) GetDoctorName(ctx context.Context, clinicID, doctorID uuid.UUID) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `
		SELECT name
		FROM doctors
		WHERE id = $1 AND clinic_id = $2
	`, doctorID, clinicID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrDoctorNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, address, gender, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) InsertPrescription(ctx context.Context, p Prescription) error {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO prescriptions (id, appointment_id, clinic_id, user_id, doctor_id, name, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, id, p.AppointmentID, p.ClinicID, p.UserID, p.DoctorID, p.Name, p.Details)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertBilling(ctx context.Context, b Billing) error {
	id := b.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO billings (id, appointment_id, clinic_id, user_id, title, amount, due_date, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, id, b.AppointmentID, b.ClinicID, b.UserID, b.Title, b.Amount, b.DueDate, b.Status, b.Description)
	if err != nil {
		return fmt.Errorf("insert billing: %w", err)
	}
	return nil
}

func (r *PgRepository) GetBillingForAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*Billing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, clinic_id, user_id, title, amount, due_date, status, description, created_at
		FROM billings
		WHERE appointment_id = $1 AND clinic_id = $2
	`, appointmentID, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []Billing
	for rows.Next() {
		var b Billing
		if err := rows.Scan(&b.ID, &b.AppointmentID, &b.ClinicID, &b.UserID, &b.Title,
			&b.Amount, &b.DueDate, &b.Status, &b.Description, &b.CreatedAt); err != nil {
			return nil, err
		}
		found = append(found, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, ErrBillingNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, ErrBillingAmbiguous
	}
}

func (r *PgRepository) PatchBilling(ctx context.Context, billingID uuid.UUID, patch BillingPatch) error {
	set := ""
	args := []any{billingID}

	appendField := func(col string, val any) {
		args = append(args, val)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}

	if patch.Title != nil {
		appendField("title", *patch.Title)
	}
	if patch.Amount != nil {
		appendField("amount", *patch.Amount)
	}
	if patch.DueDate != nil {
		appendField("due_date", *patch.DueDate)
	}
	if patch.Status != nil {
		appendField("status", *patch.Status)
	}
	if set == "" {
		return nil
	}

	tag, err := r.db.Exec(ctx, `UPDATE billings SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillingNotFound
	}
	return nil
}

// Complete performs the four lifecycle writes atomically: insert the doctor
// note, the prescription and the billing, then flip approved -> completed.
// Any failure rolls the whole thing back, leaving the appointment approved
// and no side-effect rows behind.
func (r *PgRepository) Complete(ctx context.Context, clinicID, id uuid.UUID, note DoctorNote, presc Prescription, bill Billing) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO doctor_notes (id, appointment_id, clinic_id, patient_id, doctor_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.New(), id, clinicID, note.PatientID, note.DoctorID, note.Content); err != nil {
		return fmt.Errorf("insert doctor note: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO prescriptions (id, appointment_id, clinic_id, user_id, doctor_id, name, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, uuid.New(), id, clinicID, presc.UserID, presc.DoctorID, presc.Name, presc.Details); err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO billings (id, appointment_id, clinic_id, user_id, title, amount, due_date, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, uuid.New(), id, clinicID, bill.UserID, bill.Title, bill.Amount, bill.DueDate, bill.Status, bill.Description); err != nil {
		return fmt.Errorf("insert billing: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND status = $4
	`, id, clinicID, StatusCompleted, StatusApproved)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete tx: %w", err)
	}
	return nil
}

func (r *PgRepository) GetDetail(ctx context.Context, clinicID, id uuid.UUID) (*Detail, error) {
	appt, err := r.GetAppointment(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Appointment: *appt}

	patient, err := r.GetPatient(ctx, appt.UserID)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}
	detail.Patient = patient

	prows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, clinic_id, user_id, doctor_id, name, details, created_at
		FROM prescriptions
		WHERE appointment_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p Prescription
		if err := prows.Scan(&p.ID, &p.AppointmentID, &p.ClinicID, &p.UserID, &p.DoctorID,
			&p.Name, &p.Details, &p.CreatedAt); err != nil {
			return nil, err
		}
		detail.Prescriptions = append(detail.Prescriptions, p)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	brows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, clinic_id, user_id, title, amount, due_date, status, description, created_at
		FROM billings
		WHERE appointment_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var b Billing
		if err := brows.Scan(&b.ID, &b.AppointmentID, &b.ClinicID, &b.UserID, &b.Title,
			&b.Amount, &b.DueDate, &b.Status, &b.Description, &b.CreatedAt); err != nil {
			return nil, err
		}
		detail.Billings = append(detail.Billings, b)
	}
	if err := brows.Err(); err != nil {
		return nil, err
	}

	nrows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, clinic_id, patient_id, doctor_id, content, created_at
		FROM doctor_notes
		WHERE appointment_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer nrows.Close()
	for nrows.Next() {
		var n DoctorNote
		if err := nrows.Scan(&n.ID, &n.AppointmentID, &n.ClinicID, &n.PatientID, &n.DoctorID,
			&n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		detail.Notes = append(detail.Notes, n)
	}
	if err := nrows.Err(); err != nil {
		return nil, err
	}

	return detail, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
