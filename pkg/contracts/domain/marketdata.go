package domain

// FieldMapping binds one terminal ticker+field pair to the canonical
// datastore column it feeds. The update pipeline groups these by ticker so a
// single historical request covers every field mapped from that ticker.
type FieldMapping struct {
	Column string `json:"database_column" validate:"required"`
	Ticker string `json:"ticker" validate:"required"`
	Field  string `json:"field" validate:"required"`
}

// DateRecord is one normalized datastore row keyed by canonical date. The
// date key is present from construction and never rewritten; merges only add
// or overwrite the data columns.
type DateRecord map[string]any

// NewDateRecord creates a record for the given canonical YYYY-MM-DD date.
func NewDateRecord(date string) DateRecord {
	return DateRecord{"date": date}
}

// Date returns the record's canonical date key.
func (r DateRecord) Date() string {
	d, _ := r["date"].(string)
	return d
}

// HasData reports whether any column besides the date key is populated.
// Records without data are excluded from upserts.
func (r DateRecord) HasData() bool {
	for k := range r {
		if k != "date" {
			return true
		}
	}
	return false
}

// IngestResult summarizes one ingestion run over a single export file.
type IngestResult struct {
	File     string   `json:"file"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors"`
}

// UpdateResult summarizes one market-data update run.
type UpdateResult struct {
	Success  bool     `json:"success"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors"`
}
