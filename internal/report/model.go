package report

import (
	"time"

	"github.com/google/uuid"
)

// DailyStats are the per-day appointment counters shown on the clinic
// dashboard.
type DailyStats struct {
	ClinicID  uuid.UUID `json:"clinic_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Total     int       `json:"total"`
	Pending   int       `json:"pending"`
	Approved  int       `json:"approved"`
	Declined  int       `json:"declined"`
	Completed int       `json:"completed"`

	ComputedAt time.Time `json:"computed_at"`
}

// DoctorReport aggregates appointment volume per doctor name. Rows whose
// doctor was deleted show up under the "Unknown" label.
type DoctorReport struct {
	DoctorName string `json:"doctor_name"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
}
