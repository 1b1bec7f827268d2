package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicops/clinic-backoffice/internal/apperrors"
)

// Service answers "is doctor D bookable at date/time T" and persists
// admin-entered availability. The canonical representation is the union of
// explicit per-date rows and day-of-week fallback rows; a date-specific row
// always wins over the weekday row for the same day.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SetRecurring upserts a weekday slot. available=false deletes the matching
// row instead of storing a negative record.
func (s *Service) SetRecurring(ctx context.Context, clinicID, doctorID uuid.UUID, dayOfWeek int, window TimeRange, available bool) error {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return apperrors.NewValidation("day_of_week")
	}

	if !available {
		return s.repo.DeleteRecurringSlot(ctx, doctorID, dayOfWeek, window.Label())
	}

	return s.repo.UpsertRecurringSlot(ctx, Slot{
		ClinicID:  clinicID,
		DoctorID:  doctorID,
		DayOfWeek: dayOfWeek,
		Window:    window,
	})
}

// SetDateOverride upserts a slot scoped to a single calendar date. Dates
// before the current day are rejected.
func (s *Service) SetDateOverride(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time, window TimeRange, available bool) error {
	day := dateOnly(date)
	if day.Before(dateOnly(s.now())) {
		return apperrors.NewValidation("date")
	}

	if !available {
		return s.repo.DeleteDateSlot(ctx, doctorID, day, window.Label())
	}

	return s.repo.UpsertDateSlot(ctx, Slot{
		ClinicID:  clinicID,
		DoctorID:  doctorID,
		DayOfWeek: ISOWeekday(day),
		Date:      &day,
		Window:    window,
	})
}

// BulkGenerate materializes one dated row per matching weekday from today
// through the horizon: repeatMonths=0 covers only the rest of the current
// week, repeatMonths=N covers through the end of the Nth future month.
// Each generated row replaces any existing row at that doctor/date/time.
// Returns the generated dates.
func (s *Service) BulkGenerate(ctx context.Context, clinicID, doctorID uuid.UUID, dayOfWeek int, window TimeRange, repeatMonths int) ([]time.Time, error) {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return nil, apperrors.NewValidation("day_of_week")
	}
	if repeatMonths < 0 {
		return nil, apperrors.NewValidation("repeat_months")
	}

	today := dateOnly(s.now())

	var horizon time.Time
	if repeatMonths == 0 {
		// Through Sunday of the current week.
		horizon = today.AddDate(0, 0, 7-ISOWeekday(today))
	} else {
		// Last day of the Nth future month.
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		horizon = firstOfMonth.AddDate(0, repeatMonths+1, -1)
	}

	var generated []time.Time
	for d := today; !d.After(horizon); d = d.AddDate(0, 0, 1) {
		if ISOWeekday(d) != dayOfWeek {
			continue
		}
		day := d
		if err := s.repo.UpsertDateSlot(ctx, Slot{
			ClinicID:  clinicID,
			DoctorID:  doctorID,
			DayOfWeek: dayOfWeek,
			Date:      &day,
			Window:    window,
		}); err != nil {
			return generated, fmt.Errorf("generate slot for %s: %w", day.Format("2006-01-02"), err)
		}
		generated = append(generated, day)
	}

	s.logger.Info("bulk generated availability",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("day_of_week", dayOfWeek),
		zap.Int("count", len(generated)),
	)
	return generated, nil
}

// MonthView returns availability for every calendar day in the month.
func (s *Service) MonthView(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) ([]DayAvailability, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	dated, err := s.repo.FindDateSlotsInRange(ctx, doctorID, first, last)
	if err != nil {
		return nil, fmt.Errorf("load date slots: %w", err)
	}
	recurring, err := s.repo.FindRecurring(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load recurring slots: %w", err)
	}

	byDate := make(map[string]Slot)
	for _, slot := range dated {
		key := slot.Date.Format("2006-01-02")
		if _, seen := byDate[key]; !seen {
			byDate[key] = slot
		}
	}
	byWeekday := make(map[int]Slot)
	for _, slot := range recurring {
		if _, seen := byWeekday[slot.DayOfWeek]; !seen {
			byWeekday[slot.DayOfWeek] = slot
		}
	}

	days := make([]DayAvailability, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		entry := DayAvailability{Date: d}
		if slot, ok := byDate[d.Format("2006-01-02")]; ok {
			entry.Available = true
			entry.TimeLabel = slot.Window.Label()
			entry.Override = true
		} else if slot, ok := byWeekday[ISOWeekday(d)]; ok {
			entry.Available = true
			entry.TimeLabel = slot.Window.Label()
		}
		days = append(days, entry)
	}
	return days, nil
}

// Lookup resolves the winning slot for a date: date-specific first, weekday
// fallback second. ErrNoAvailability when neither exists.
func (s *Service) Lookup(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Slot, error) {
	day := dateOnly(date)

	dated, err := s.repo.FindByDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("lookup date slots: %w", err)
	}
	if len(dated) > 0 {
		return &dated[0], nil
	}

	recurring, err := s.repo.FindByWeekday(ctx, doctorID, ISOWeekday(day))
	if err != nil {
		return nil, fmt.Errorf("lookup weekday slots: %w", err)
	}
	if len(recurring) > 0 {
		return &recurring[0], nil
	}

	return nil, ErrNoAvailability
}

// Bookable reports whether the doctor can take an appointment at the given
// date and "HH:MM" time. Doctors with no slot rows at all are treated as
// unconstrained, so legacy installs keep approving without schedules.
func (s *Service) Bookable(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (bool, error) {
	day := dateOnly(date)

	dated, err := s.repo.FindByDate(ctx, doctorID, day)
	if err != nil {
		return false, fmt.Errorf("lookup date slots: %w", err)
	}
	if len(dated) > 0 {
		return windowsContain(dated, hhmm), nil
	}

	recurring, err := s.repo.FindByWeekday(ctx, doctorID, ISOWeekday(day))
	if err != nil {
		return false, fmt.Errorf("lookup weekday slots: %w", err)
	}
	if len(recurring) > 0 {
		return windowsContain(recurring, hhmm), nil
	}

	any, err := s.repo.HasAnySlots(ctx, doctorID)
	if err != nil {
		return false, fmt.Errorf("lookup slots: %w", err)
	}
	if any {
		// The doctor keeps a schedule and this day is not on it.
		return false, nil
	}
	return true, nil
}

// ClearDate deletes every slot the doctor has on one calendar date.
func (s *Service) ClearDate(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	return s.repo.DeleteSlotsForDate(ctx, doctorID, dateOnly(date))
}

// ClearWeekday deletes every recurring slot for one weekday.
func (s *Service) ClearWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) error {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return apperrors.NewValidation("day_of_week")
	}
	return s.repo.DeleteRecurringForWeekday(ctx, doctorID, dayOfWeek)
}

func windowsContain(slots []Slot, hhmm string) bool {
	if hhmm == "" {
		return true
	}
	for _, slot := range slots {
		if slot.Window.Contains(hhmm) {
			return true
		}
	}
	return false
}
