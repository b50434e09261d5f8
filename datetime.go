package xmlrpc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateTimeLayout is the ISO 8601 basic form used on the wire: no separators
// in the date, a literal 'T', and colon-separated time. No time zone is
// carried (§3): the parsed time.Time is built in time.UTC purely as a
// placeholder clock, not a claim about the sender's zone.
const dateTimeLayout = "20060102T15:04:05"

// parseDateTime parses the ISO-8601-basic dateTime.iso8601 wire form,
// including the optional ".ffffff" fractional-second suffix.
func parseDateTime(s string) (time.Time, error) {
	base, frac, hasFrac := strings.Cut(s, ".")

	t, err := time.Parse(dateTimeLayout, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("xmlrpc: %w: %q: %v", ErrInvalidDateTime, s, err)
	}

	if !hasFrac {
		return t, nil
	}
	if frac == "" {
		return time.Time{}, fmt.Errorf("xmlrpc: %w: %q: empty fractional seconds", ErrInvalidDateTime, s)
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return time.Time{}, fmt.Errorf("xmlrpc: %w: %q: non-digit fractional seconds", ErrInvalidDateTime, s)
		}
	}

	// Normalize to nanoseconds regardless of how many digits were supplied.
	digits := frac
	if len(digits) > 9 {
		digits = digits[:9]
	}
	for len(digits) < 9 {
		digits += "0"
	}
	ns, err := strconv.Atoi(digits)
	if err != nil {
		return time.Time{}, fmt.Errorf("xmlrpc: %w: %q: %v", ErrInvalidDateTime, s, err)
	}

	return t.Add(time.Duration(ns) * time.Nanosecond), nil
}

// formatDateTime renders t in the wire form, including a ".ffffff" suffix
// only when t has sub-second precision.
func formatDateTime(t time.Time) string {
	base := t.Format(dateTimeLayout)
	if t.Nanosecond() == 0 {
		return base
	}
	return fmt.Sprintf("%s.%06d", base, t.Nanosecond()/1000)
}
