package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNoAvailability = errors.New("no availability slot found")

// Repository contains the slot persistence needed by the engine.
type Repository interface {
	// Upserts replace any existing row at the same (doctor, date, time) or
	// (doctor, weekday, time) key.
	UpsertDateSlot(ctx context.Context, slot Slot) error
	UpsertRecurringSlot(ctx context.Context, slot Slot) error

	DeleteDateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeLabel string) error
	DeleteRecurringSlot(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, timeLabel string) error
	DeleteSlotsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) error
	DeleteRecurringForWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) error

	FindByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error)
	FindByWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]Slot, error)
	FindDateSlotsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Slot, error)
	FindRecurring(ctx context.Context, doctorID uuid.UUID) ([]Slot, error)
	HasAnySlots(ctx context.Context, doctorID uuid.UUID) (bool, error)
}
