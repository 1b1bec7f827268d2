package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrNameTaken      = errors.New("doctor name already in use for this clinic")
)

// Repository contains the doctor and cascade persistence.
type Repository interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*Doctor, error)
	GetByName(ctx context.Context, clinicID uuid.UUID, name string) (*Doctor, error)
	List(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error)
	Create(ctx context.Context, d Doctor) (*Doctor, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, name string, specializationID *uuid.UUID) (*Doctor, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error

	ListSpecializations(ctx context.Context, clinicID uuid.UUID) ([]Specialization, error)

	// Cascade rewrites for the denormalized doctor name and the id FK.
	RewriteAppointmentDoctorName(ctx context.Context, clinicID uuid.UUID, oldName, newName string) (int64, error)
	ClearAppointmentDoctorID(ctx context.Context, clinicID, doctorID uuid.UUID) (int64, error)
}
