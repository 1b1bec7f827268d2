package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrClinicNotFound = errors.New("clinic not found")

// Repository runs the aggregation queries. Reports are computed in SQL, not
// by loading rows into memory.
type Repository interface {
	DailyStats(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DailyStats, error)
	DoctorReports(ctx context.Context, clinicID uuid.UUID) ([]DoctorReport, error)
	ClinicName(ctx context.Context, clinicID uuid.UUID) (string, error)
	ListClinicIDs(ctx context.Context) ([]uuid.UUID, error)
}
