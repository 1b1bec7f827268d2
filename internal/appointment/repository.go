package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrBillingNotFound     = errors.New("billing not found")
	ErrBillingAmbiguous    = errors.New("appointment has more than one billing row")
	ErrStatusConflict      = errors.New("appointment status changed concurrently")
)

// Repository contains all DB interactions needed by the lifecycle manager.
type Repository interface {
	GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, clinicID, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]Appointment, error)

	// UpdateStatus is a compare-and-swap: it only applies when the row still
	// holds the from status, returning ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, from, to Status) (*Appointment, error)
	SetDoctor(ctx context.Context, clinicID, id, doctorID uuid.UUID, doctorName string) error

	// ResolveDoctorID looks a doctor up by clinic-scoped name (legacy
	// reference compatibility path). ErrDoctorNotFound on a miss.
	ResolveDoctorID(ctx context.Context, clinicID uuid.UUID, name string) (uuid.UUID, error)
	GetDoctorName(ctx context.Context, clinicID, doctorID uuid.UUID) (string, error)

	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)

	InsertPrescription(ctx context.Context, p Prescription) error
	InsertBilling(ctx context.Context, b Billing) error
	GetBillingForAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*Billing, error)
	PatchBilling(ctx context.Context, billingID uuid.UUID, patch BillingPatch) error

	// Complete writes the note, prescription and billing and flips the status
	// from approved to completed in a single transaction.
	Complete(ctx context.Context, clinicID, id uuid.UUID, note DoctorNote, presc Prescription, bill Billing) error

	InsertEvent(ctx context.Context, ev Event) error
}
