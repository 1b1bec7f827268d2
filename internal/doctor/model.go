package doctor

import (
	"time"

	"github.com/google/uuid"
)

// UnknownDoctor is the label assigned to appointments whose doctor record
// was deleted.
const UnknownDoctor = "Unknown"

type Doctor struct {
	ID               uuid.UUID
	ClinicID         uuid.UUID
	Name             string
	SpecializationID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Specialization is read-only reference data.
type Specialization struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	Name     string
}

// CascadeReport describes a reference cascade run: which tables were
// rewritten and which failed. Partial failure does not roll back the
// successful rewrites; the caller decides whether to proceed.
type CascadeReport struct {
	Updated  []string
	Failures map[string]error
}

func (r *CascadeReport) Failed() bool {
	return len(r.Failures) > 0
}
