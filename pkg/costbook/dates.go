package costbook

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of trade, price and rate dates.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, NewError(ErrCodeInvalidInput, "date required")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, Errorf(ErrCodeInvalidInput, "invalid date: %s", s)
	}
	return dayOf(t), nil
}

// Today returns the current UTC calendar day.
func Today() time.Time {
	return dayOf(time.Now())
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dayOf(b).Sub(dayOf(a)).Hours() / 24)
}
