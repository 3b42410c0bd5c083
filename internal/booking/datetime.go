package booking

import (
	"strings"
	"time"

	"vetcare-server/internal/apperr"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// ParseDate validates a YYYY-MM-DD calendar date and returns it unchanged.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", apperr.Validation("appointment_date must be formatted as YYYY-MM-DD")
	}
	return s, nil
}

// ParseClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{clockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", apperr.Validation("appointment_time must be formatted as HH:MM or HH:MM:SS")
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(dateLayout)
}

// IsPast reports whether date is strictly before today.
func IsPast(date string, now time.Time, loc *time.Location) bool {
	return date < Today(now, loc)
}
