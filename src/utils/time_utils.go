package utils

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
// Pass "day" to reset to midnight in t's location.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return ResetTime(t, "day").AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseDateRange parses "YYYY-MM-DD,YYYY-MM-DD". Either side may be empty.
// The end date covers the whole day.
func ParseDateRange(value string) (*time.Time, *time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil, nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("date range must be in format 'YYYY-MM-DD,YYYY-MM-DD'")
	}

	var start, end *time.Time

	if s := strings.TrimSpace(parts[0]); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date %q", s)
		}
		start = &t
	}

	if s := strings.TrimSpace(parts[1]); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date %q", s)
		}
		eod := EndOfDay(t)
		end = &eod
	}

	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("end date %s is before start date %s", parts[1], parts[0])
	}

	return start, end, nil
}
