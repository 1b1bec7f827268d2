package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

var apptCols = []string{
	"id", "clinic_id", "user_id", "patient_name", "patient_age", "patient_gender",
	"blood_type", "patient_identity", "date", "time", "reason", "specialization_id",
	"doctor_id", "doctor_name", "status", "created_at", "updated_at",
}

func appointmentRow(id, clinicID uuid.UUID, status Status) *pgxmock.Rows {
	now := time.Now()
	date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(apptCols).AddRow(
		id, clinicID, uuid.New(), nil, nil, nil,
		nil, nil, date, "10:00", "Routine checkup", nil,
		nil, nil, status, now, now,
	)
}

func TestUpdateStatus_CAS(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()

	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, clinicID, StatusApproved, StatusPending).
		WillReturnRows(appointmentRow(id, clinicID, StatusApproved))

	repo := NewPgRepository(mock)
	appt, err := repo.UpdateStatus(context.Background(), clinicID, id, StatusPending, StatusApproved)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if appt.Status != StatusApproved {
		t.Errorf("status = %s, want approved", appt.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus_ConflictWhenRowExistsWithOtherStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()

	// CAS misses, the follow-up read finds the row declined.
	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, clinicID, StatusApproved, StatusPending).
		WillReturnRows(pgxmock.NewRows(apptCols))
	mock.ExpectQuery(`SELECT .+ FROM appointments`).
		WithArgs(id, clinicID).
		WillReturnRows(appointmentRow(id, clinicID, StatusDeclined))

	repo := NewPgRepository(mock)
	if _, err := repo.UpdateStatus(context.Background(), clinicID, id, StatusPending, StatusApproved); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus_NotFoundWhenRowMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()

	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, clinicID, StatusApproved, StatusPending).
		WillReturnRows(pgxmock.NewRows(apptCols))
	mock.ExpectQuery(`SELECT .+ FROM appointments`).
		WithArgs(id, clinicID).
		WillReturnRows(pgxmock.NewRows(apptCols))

	repo := NewPgRepository(mock)
	if _, err := repo.UpdateStatus(context.Background(), clinicID, id, StatusPending, StatusApproved); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestComplete_CommitsAllFourWrites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()
	userID := uuid.New()
	due := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	desc := "Billing for service on 2026-09-02"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO doctor_notes`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, pgxmock.AnyArg(), "Recovered well.").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO prescriptions`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, pgxmock.AnyArg(), "Amoxicillin", "500mg").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO billings`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, "Consultation", 150.0, &due, BillingUnpaid, &desc).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE appointments`).
		WithArgs(id, clinicID, StatusCompleted, StatusApproved).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	repo := NewPgRepository(mock)
	err = repo.Complete(context.Background(), clinicID, id,
		DoctorNote{PatientID: userID, Content: "Recovered well."},
		Prescription{UserID: userID, Name: "Amoxicillin", Details: "500mg"},
		Billing{UserID: userID, Title: "Consultation", Amount: 150, DueDate: &due, Status: BillingUnpaid, Description: &desc},
	)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestComplete_RollsBackOnStatusConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	id, clinicID := uuid.New(), uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO doctor_notes`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, pgxmock.AnyArg(), "note").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO prescriptions`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, pgxmock.AnyArg(), "Rx", "details").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO billings`).
		WithArgs(pgxmock.AnyArg(), id, clinicID, userID, "Consultation", 150.0, pgxmock.AnyArg(), BillingUnpaid, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Status already flipped elsewhere: CAS matches zero rows.
	mock.ExpectExec(`UPDATE appointments`).
		WithArgs(id, clinicID, StatusCompleted, StatusApproved).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	repo := NewPgRepository(mock)
	err = repo.Complete(context.Background(), clinicID, id,
		DoctorNote{PatientID: userID, Content: "note"},
		Prescription{UserID: userID, Name: "Rx", Details: "details"},
		Billing{UserID: userID, Title: "Consultation", Amount: 150, Status: BillingUnpaid},
	)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetBillingForAppointment_Cardinality(t *testing.T) {
	billingCols := []string{"id", "appointment_id", "clinic_id", "user_id", "title", "amount", "due_date", "status", "description", "created_at"}

	t.Run("none", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		defer mock.Close()

		apptID, clinicID := uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT .+ FROM billings`).
			WithArgs(apptID, clinicID).
			WillReturnRows(pgxmock.NewRows(billingCols))

		repo := NewPgRepository(mock)
		if _, err := repo.GetBillingForAppointment(context.Background(), clinicID, apptID); !errors.Is(err, ErrBillingNotFound) {
			t.Fatalf("expected ErrBillingNotFound, got %v", err)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		defer mock.Close()

		apptID, clinicID := uuid.New(), uuid.New()
		now := time.Now()
		rows := pgxmock.NewRows(billingCols).
			AddRow(uuid.New(), apptID, clinicID, uuid.New(), "A", 10.0, nil, BillingUnpaid, nil, now).
			AddRow(uuid.New(), apptID, clinicID, uuid.New(), "B", 20.0, nil, BillingUnpaid, nil, now)
		mock.ExpectQuery(`SELECT .+ FROM billings`).
			WithArgs(apptID, clinicID).
			WillReturnRows(rows)

		repo := NewPgRepository(mock)
		if _, err := repo.GetBillingForAppointment(context.Background(), clinicID, apptID); !errors.Is(err, ErrBillingAmbiguous) {
			t.Fatalf("expected ErrBillingAmbiguous, got %v", err)
		}
	})
}

func TestPatchBilling_BuildsPartialSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	billingID := uuid.New()
	paid := BillingPaid

	mock.ExpectExec(`UPDATE billings SET status = \$2 WHERE id = \$1`).
		WithArgs(billingID, paid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPgRepository(mock)
	if err := repo.PatchBilling(context.Background(), billingID, BillingPatch{Status: &paid}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
