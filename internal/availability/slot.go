package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Weekday numbering used in slot rows: 1=Monday .. 7=Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// TimeRange is a bookable window in the stored "HH:MM - HH:MM" form.
// End may be empty for single-time slots.
type TimeRange struct {
	Start string
	End   string
}

// ParseTimeRange accepts "09:00" or "09:00 - 18:00".
func ParseTimeRange(raw string) (TimeRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TimeRange{}, fmt.Errorf("empty time range")
	}

	parts := strings.SplitN(raw, " - ", 2)
	tr := TimeRange{Start: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		tr.End = strings.TrimSpace(parts[1])
	}

	if _, err := time.Parse("15:04", tr.Start); err != nil {
		return TimeRange{}, fmt.Errorf("invalid start time %q", tr.Start)
	}
	if tr.End != "" {
		if _, err := time.Parse("15:04", tr.End); err != nil {
			return TimeRange{}, fmt.Errorf("invalid end time %q", tr.End)
		}
		if tr.End <= tr.Start {
			return TimeRange{}, fmt.Errorf("end time %q not after start time %q", tr.End, tr.Start)
		}
	}

	return tr, nil
}

// Label returns the stored representation.
func (tr TimeRange) Label() string {
	if tr.End == "" {
		return tr.Start
	}
	return tr.Start + " - " + tr.End
}

// Contains reports whether the "HH:MM" time falls inside the window.
// A single-time slot only matches its exact start.
func (tr TimeRange) Contains(hhmm string) bool {
	if tr.End == "" {
		return hhmm == tr.Start
	}
	return hhmm >= tr.Start && hhmm < tr.End
}

// Slot is one availability row. Date set means a one-off override for that
// calendar day; date nil means the row applies to every matching weekday.
type Slot struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek int
	Date      *time.Time
	Window    TimeRange
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayAvailability is one calendar day in a month view.
type DayAvailability struct {
	Date      time.Time
	Available bool
	TimeLabel string
	Override  bool // true when a date-specific row won over the weekday fallback
}
