package preference

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeOfDay is returned when parsing a malformed HH:MM value.
var ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return NewTimeOfDay(hour, minute), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// minutesOfDay converts a wall-clock instant to minutes since midnight.
func minutesOfDay(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// QuietHours is a do-not-disturb window. The window may wrap midnight,
// e.g. Start=22:00 End=06:00 covers late evening through early morning.
type QuietHours struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether the instant falls inside the window.
func (q QuietHours) Contains(now time.Time) bool {
	m := minutesOfDay(now)

	if q.Start < q.End {
		return m >= q.Start && m <= q.End
	}
	// Window wraps midnight.
	return m > q.Start || m < q.End
}

// NextEnd returns the next instant at which the window closes, relative
// to now. Only meaningful when Contains(now) is true.
func (q QuietHours) NextEnd(now time.Time) time.Time {
	end := time.Date(now.Year(), now.Month(), now.Day(), q.End.Hour(), q.End.Minute(), 0, 0, now.Location())

	// In a wrapped window the evening side ends tomorrow morning.
	if q.Start >= q.End && minutesOfDay(now) > q.Start {
		end = end.AddDate(0, 0, 1)
	}

	return end
}
