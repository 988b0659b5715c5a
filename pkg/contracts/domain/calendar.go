package domain

// CalendarEvent is one economic-calendar entry for one ticker, constructed
// once per fetch cycle and immutable afterwards. Actual is nil for events the
// classifier determined to be unreleased, regardless of any raw latest value
// the terminal returned.
type CalendarEvent struct {
	Ticker               string   `json:"ticker" validate:"required"`
	Country              string   `json:"country"`
	Event                string   `json:"event"`
	ReleaseDate          string   `json:"release_date" validate:"required"`
	ReleaseTime          string   `json:"release_time,omitempty"`
	Period               string   `json:"period"`
	SurveyMedian         *float64 `json:"survey_median"`
	Actual               *float64 `json:"actual"`
	Prior                *float64 `json:"prior"`
	Revised              *float64 `json:"revised"`
	LastUpdateDate       string   `json:"last_update_date,omitempty"`
	LastReportDate       string   `json:"last_report_date,omitempty"`
	PriorObservationDate string   `json:"prior_observation_date,omitempty"`
}

// CalendarResult is the outcome of one classification run over a ticker set.
type CalendarResult struct {
	Events []CalendarEvent `json:"calendar_data"`
	Count  int             `json:"count"`
	Errors []string        `json:"errors"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}
