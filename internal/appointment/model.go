package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
)

type BillingStatus string

const (
	BillingUnpaid  BillingStatus = "unpaid"
	BillingPaid    BillingStatus = "paid"
	BillingPartial BillingStatus = "partial"
)

func ValidBillingStatus(s BillingStatus) bool {
	switch s {
	case BillingUnpaid, BillingPaid, BillingPartial:
		return true
	}
	return false
}

// Patient is a shared profile row. Patients are deliberately not
// clinic-scoped; UserID points at the owning account when the profile was
// created for someone else (a relative, a dependent).
type Patient struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	FullName  string
	Address   *string
	Gender    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the aggregate root of the lifecycle. DoctorID is the
// primary reference; DoctorName is the denormalized legacy label kept in
// sync by the doctor reference integrity service.
type Appointment struct {
	ID               uuid.UUID
	ClinicID         uuid.UUID
	UserID           uuid.UUID
	PatientName      *string
	PatientAge       *int
	PatientGender    *string
	BloodType        *string
	PatientIdentity  *string
	Date             time.Time
	Time             string // "HH:MM"
	Reason           string
	SpecializationID *uuid.UUID
	DoctorID         *uuid.UUID
	DoctorName       *string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Prescription struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	ClinicID      uuid.UUID
	UserID        uuid.UUID
	DoctorID      *uuid.UUID
	Name          string
	Details       string
	CreatedAt     time.Time
}

type Billing struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	ClinicID      uuid.UUID
	UserID        uuid.UUID
	Title         string
	Amount        float64
	DueDate       *time.Time
	Status        BillingStatus
	Description   *string
	CreatedAt     time.Time
}

type DoctorNote struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	ClinicID      uuid.UUID
	PatientID     uuid.UUID // owning-user id when the indirection exists
	DoctorID      *uuid.UUID
	Content       string
	CreatedAt     time.Time
}

// Event is an audit row recorded on every state transition.
type Event struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Detail is an appointment hydrated with its side-effect records.
type Detail struct {
	Appointment
	Patient       *Patient
	Prescriptions []Prescription
	Billings      []Billing
	Notes         []DoctorNote
}

// DoctorRef identifies the treating doctor by id (preferred) or by legacy
// name, resolved via clinic-scoped lookup.
type DoctorRef struct {
	ID   *uuid.UUID
	Name string
}

func (r DoctorRef) Empty() bool {
	return r.ID == nil && r.Name == ""
}

// CompletionInput carries the three side-effect records Complete writes
// together with the status flip.
type CompletionInput struct {
	PrescriptionName    string
	PrescriptionDetails string
	NoteContent         string
	BillingTitle        string
	BillingAmount       float64
	BillingDueDate      *time.Time
	BillingStatus       BillingStatus
}

// BillingPatch is a partial update of the billing row owned by an
// appointment. Nil fields are left untouched.
type BillingPatch struct {
	Title   *string
	Amount  *float64
	DueDate *time.Time
	Status  *BillingStatus
}

func (p BillingPatch) Empty() bool {
	return p.Title == nil && p.Amount == nil && p.DueDate == nil && p.Status == nil
}

// ListFilter narrows appointment list views.
type ListFilter struct {
	Status     Status
	Date       *time.Time
	DoctorName string
	Oldest     bool // default ordering is newest first
}
