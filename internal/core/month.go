package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthKey buckets records by calendar year and month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the wall-clock month of t in loc.
func MonthOf(t time.Time, loc *time.Location) MonthKey {
	y, m, _ := t.In(locOrLocal(loc)).Date()
	return MonthKey{Year: y, Month: m}
}

// ParseMonthKey parses "2006-01".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return MonthKey{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Prev returns the month before k, rolling January back to December.
func (k MonthKey) Prev() MonthKey {
	if k.Month == time.January {
		return MonthKey{Year: k.Year - 1, Month: time.December}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// Next returns the month after k, rolling December over to January.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// Contains reports whether t falls in k using the wall clock of loc.
func (k MonthKey) Contains(t time.Time, loc *time.Location) bool {
	return MonthOf(t, loc) == k
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay fits day into [1, k.Days()].
func (k MonthKey) ClampDay(day int) int {
	if day < 1 {
		return 1
	}
	if last := k.Days(); day > last {
		return last
	}
	return day
}

// Date returns midnight in loc of the given day, clamped to the month.
func (k MonthKey) Date(day int, loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.ClampDay(day), 0, 0, 0, 0, locOrLocal(loc))
}

// DayOf returns the wall-clock day of month of t in loc.
func DayOf(t time.Time, loc *time.Location) int {
	return t.In(locOrLocal(loc)).Day()
}

// ParseTimestamp reads ISO-8601 timestamps exchanged at the boundary.
// RFC3339 values are converted to loc; date-only values are midnight in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc = locOrLocal(loc)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func locOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
