// Package quotes selects per-ticker prices from terminal reference fields
// under the US equity market-session rule and builds the sparse quote surface.
package quotes

import (
	"time"
)

const easternZone = "America/New_York"

// Session boundaries in Eastern civil time, inclusive on both ends.
const (
	sessionOpenHour   = 9
	sessionOpenMinute = 30
	sessionCloseHour  = 16
)

// InSession reports whether now falls inside the 09:30-16:00 Eastern trading
// window. When the timezone database is unavailable the answer is false, so
// price selection fails safe toward the official close.
func InSession(now time.Time) bool {
	loc, err := time.LoadLocation(easternZone)
	if err != nil {
		return false
	}
	local := now.In(loc)
	seconds := (local.Hour()*60+local.Minute())*60 + local.Second()
	open := (sessionOpenHour*60 + sessionOpenMinute) * 60
	close := sessionCloseHour * 60 * 60
	return seconds >= open && seconds <= close
}

// ReleaseInstant combines a calendar date with an Eastern civil wall time.
// ok is false when the timezone database is unavailable.
func ReleaseInstant(date time.Time, hour, minute int) (time.Time, bool) {
	loc, err := time.LoadLocation(easternZone)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), true
}
