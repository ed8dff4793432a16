package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// CalendarDay identifies a local calendar day, independent of clock time and DST.
// It is the number of days since 1970-01-01 of the day's year/month/day in the
// location of the time it was derived from.
type CalendarDay int64

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) CalendarDay {
	y, m, d := t.Date()
	unix := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	day := unix / secondsPerDay
	if unix%secondsPerDay < 0 {
		day--
	}
	return CalendarDay(day)
}

// AddDays returns the day n days after d.
func (d CalendarDay) AddDays(n int) CalendarDay {
	return d + CalendarDay(n)
}

// Weekday returns the weekday of d.
func (d CalendarDay) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// In returns midnight of d in loc.
func (d CalendarDay) In(loc *time.Location) time.Time {
	t := d.utc()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (d CalendarDay) String() string {
	return d.utc().Format(time.DateOnly)
}

func (d CalendarDay) utc() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// DaysBetween returns the number of calendar days from one instant to another.
// Both instants are read in their own locations; callers normalize to one calendar.
func DaysBetween(from, to time.Time) int {
	return int(DayOf(to) - DayOf(from))
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekdaySet is a set of weekdays stored as a bitmask (bit 0 = Sunday).
type WeekdaySet uint8

// NewWeekdaySet builds a set from weekdays. Out-of-range values are ignored.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			continue
		}
		s |= 1 << uint(d)
	}
	return s
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

// Days lists the weekdays in the set in index order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// IsEmpty reports whether no weekday is set.
func (s WeekdaySet) IsEmpty() bool {
	return s&0x7f == 0
}

// ErrInvalidWeekday is returned for a weekday name that cannot be parsed.
var ErrInvalidWeekday = errors.New("invalid weekday")

// ParseWeekday accepts full or three-letter English weekday names in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ParseWeekdays parses a comma-separated weekday list. Empty input gives no days.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// ParseDate reads a YYYY-MM-DD date as noon in loc, keeping the calendar day
// stable under small offset changes. Empty input means now.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t.Add(12 * time.Hour), nil
}
