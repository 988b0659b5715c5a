// Package calendar classifies economic-calendar reference data: it resolves
// each ticker's effective release date, decides whether the release has
// happened as of "now" using Eastern-time cutovers, and withholds the actual
// value for events that are still in the future. The terminal's reference
// feed conflates "latest known value" with "value as of the release date";
// this classifier is what keeps a stale prior from surfacing as a fresh
// actual.
package calendar

import (
	"time"

	"databridge/internal/dates"
	"databridge/internal/quotes"
	"databridge/pkg/contracts/domain"
)

// Terminal field names for the calendar feed.
const (
	FieldCountry       = "REGION_OR_COUNTRY"
	FieldDescription   = "SECURITY_DES"
	FieldReleaseDate   = "ECO_RELEASE_DT"
	FieldReleaseTime   = "ECO_RELEASE_TIME"
	FieldPeriod        = "OBSERVATION_PERIOD"
	FieldSurveyMedian  = "RT_BN_SURVEY_MEDIAN"
	FieldLatest        = "PX_LAST"
	FieldPrior         = "PREV_CLOSE_VAL"
	FieldRevised       = "FIRST_REVISION"
	FieldLastUpdate    = "LAST_UPDATE_DT"
	FieldLastReport    = "PREV_TRADING_DT_REALTIME"
	FieldPriorObsDate  = "PRIOR_OBSERVATION_DATE"
	FieldFutureRelease = "ECO_FUTURE_RELEASE_DATE"
)

// EventFields is the reference-field set requested for every ticker.
var EventFields = []string{
	FieldCountry, FieldDescription, FieldReleaseDate, FieldReleaseTime,
	FieldPeriod, FieldSurveyMedian, FieldLatest, FieldPrior, FieldRevised,
	FieldLastUpdate, FieldLastReport, FieldPriorObsDate,
}

// ForwardWindowDays bounds how far ahead a resolvable release may lie.
const ForwardWindowDays = 365

// Resolution is the outcome of the first-pass release-date lookup.
type Resolution struct {
	// Date is the parsed ECO_RELEASE_DT, zero when absent or unparsable.
	Date time.Time
	// Settled is true when Date parsed and is on or before today.
	Settled bool
}

// ResolveReleaseDate runs the first pass over the realized release-date
// field. A date that is missing, unparsable, or strictly after today leaves
// Settled false, which tells the caller to issue the single-field future
// lookup.
func ResolveReleaseDate(fields domain.FieldRow, today time.Time) Resolution {
	raw := fields.Get(FieldReleaseDate).TextOr("")
	d, ok := dates.ParseCompact(raw)
	if !ok {
		return Resolution{}
	}
	return Resolution{Date: d, Settled: !d.After(today)}
}

// Classify builds the calendar event for one ticker. futureDate is the result
// of the second, single-field lookup (zero when not performed or empty);
// futureMarked must be true only when the release date came from that lookup.
// ok is false when the event is dropped: no resolvable date, or a date
// outside [today, today+365d].
func Classify(ticker string, fields domain.FieldRow, res Resolution, futureDate time.Time, futureMarked bool, today, now time.Time) (domain.CalendarEvent, bool) {
	releaseDate := res.Date
	if futureMarked {
		releaseDate = futureDate
	}
	if releaseDate.IsZero() {
		return domain.CalendarEvent{}, false
	}
	if releaseDate.Before(today) || releaseDate.After(today.AddDate(0, 0, ForwardWindowDays)) {
		return domain.CalendarEvent{}, false
	}

	releaseTime := fields.Get(FieldReleaseTime).TextOr("")
	future := futureMarked
	if !future {
		if releaseDate.After(today) {
			future = true
		} else if sameDay(releaseDate, today) && releaseTime != "" {
			// Compare the scheduled Eastern release instant with now.
			// Unparsable times and a missing timezone database both fall
			// through to "released" so an actual is never withheld on a
			// parsing shortfall.
			if hour, minute, ok := dates.ParseReleaseTime(releaseTime); ok {
				if instant, ok := quotes.ReleaseInstant(releaseDate, hour, minute); ok && now.Before(instant) {
					future = true
				}
			}
		}
	}

	event := domain.CalendarEvent{
		Ticker:               ticker,
		Country:              fields.Get(FieldCountry).TextOr(""),
		Event:                fields.Get(FieldDescription).TextOr(""),
		ReleaseDate:          releaseDate.Format(dates.ISO),
		ReleaseTime:          releaseTime,
		Period:               fields.Get(FieldPeriod).TextOr(""),
		SurveyMedian:         fields.Get(FieldSurveyMedian).FloatPtr(),
		Prior:                fields.Get(FieldPrior).FloatPtr(),
		Revised:              fields.Get(FieldRevised).FloatPtr(),
		LastUpdateDate:       dates.NormalizeCompact(fields.Get(FieldLastUpdate).TextOr("")),
		LastReportDate:       dates.NormalizeCompact(fields.Get(FieldLastReport).TextOr("")),
		PriorObservationDate: dates.NormalizeCompact(fields.Get(FieldPriorObsDate).TextOr("")),
	}
	if !future {
		event.Actual = fields.Get(FieldLatest).FloatPtr()
	}
	return event, true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
