// Package dates provides the calendar-date and release-time normalization
// shared by the export ingestor and the economic-calendar classifier. All
// parsing here is pure calendar resolution with no timezone interpretation;
// failures are reported through ok flags so callers can skip bad rows without
// erroring.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISO is the canonical storage date layout.
const ISO = "2006-01-02"

var monthYearRe = regexp.MustCompile(`^([A-Za-z]{3})-(\d{2})$`)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Normalize resolves a raw export date string to canonical YYYY-MM-DD.
//
// The Mon-YY shorthand ("Jan-24") resolves the two-digit year with a pivot of
// 50 (<50 means 2000s) and always lands on the first of the month. Anything
// else goes through the permissive general parser. An empty or unparseable
// input returns ok=false; the caller skips that row.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			return "", false
		}
		yy, _ := strconv.Atoi(m[2])
		year := 1900 + yy
		if yy < 50 {
			year = 2000 + yy
		}
		return fmt.Sprintf("%04d-%02d-01", year, int(month)), true
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format(ISO), true
}

// ParseCompact resolves a terminal-style date (YYYYMMDD, possibly with a time
// suffix) or an already-canonical YYYY-MM-DD string to a calendar date.
func ParseCompact(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= 10 {
		if t, err := time.Parse(ISO, s[:10]); err == nil {
			return t, true
		}
	}
	if len(s) >= 8 {
		if t, err := time.Parse("20060102", s[:8]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeCompact is ParseCompact rendered to canonical form, with empty
// string standing in for an unparseable input.
func NormalizeCompact(raw string) string {
	t, ok := ParseCompact(raw)
	if !ok {
		return ""
	}
	return t.Format(ISO)
}

// ParseReleaseTime splits an HH:MM or HH:MM:SS civil-time string. Seconds are
// ignored. ok is false when either component is missing or non-numeric.
func ParseReleaseTime(raw string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
