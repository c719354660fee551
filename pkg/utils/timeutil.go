package utils

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout matches Python's datetime.isoformat() for whole seconds: the UTC
// offset is always numeric ("+00:00", never "Z").
const ISOLayout = "2006-01-02T15:04:05-07:00"

// DateLayout is the calendar-date layout used for report periods.
const DateLayout = "2006-01-02"

// FormatISO formats t as an ISO-8601 timestamp with a numeric offset.
// Sub-second precision is kept when present.
func FormatISO(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.999999-07:00")
	}
	return t.Format(ISOLayout)
}

// FormatDate formats t as "2006-01-02" in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a request date. It accepts "2006-01-02" (midnight UTC),
// "2006-01-02 15:04:05", RFC 3339 and ISO timestamps without an offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		DateLayout,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
}

// LoadLocation returns the named time zone, falling back to UTC when the name
// is empty or the tz database does not know it.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
