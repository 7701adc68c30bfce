package models

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek is a symbolic weekday name as stored with availability windows.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

var weekdayNames = map[DayOfWeek]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Weekday maps the symbolic name onto time.Weekday.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	wd, ok := weekdayNames[d]
	return wd, ok
}

// Valid reports whether d is one of the seven known names.
func (d DayOfWeek) Valid() bool {
	_, ok := weekdayNames[d]
	return ok
}

// DayOfWeekFor returns the symbolic name for a calendar date.
func DayOfWeekFor(t time.Time) DayOfWeek {
	return DayOfWeek(t.Weekday().String())
}

// ParseClock converts an "HH:MM" time-of-day into minutes since midnight.
// Seconds are tolerated and ignored so TIME column values scan cleanly.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(parts[0]+":"+parts[1], "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
