package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the DD.MM.YYYY format used by the price history.
const DateLayout = "02.01.2006"

// Day truncates t to a calendar date in UTC so dates compare with Equal.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want DD.MM.YYYY: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
