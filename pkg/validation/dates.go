package validation

import (
	"strings"
	"time"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value as a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// Age returns the number of whole years between dob and now, comparing
// calendar year, month and day in UTC.
func Age(dob, now time.Time) int {
	dob = dob.UTC()
	now = now.UTC()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
