package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"databridge/internal/dates"
	"databridge/internal/infrastructure"
	"databridge/pkg/contracts/domain"
)

// upsertBatchSize bounds the row count of a single datastore write.
const upsertBatchSize = 100

// dateHeaders is the fixed priority list of candidate date columns in a
// source row.
var dateHeaders = []string{"date", "dates", "month"}

// DateStore is the slice of the datastore the ingestor needs: conflict-keyed
// upserts and not-null column scans for the idempotent re-run guard.
type DateStore interface {
	Upsert(ctx context.Context, table string, rows []domain.DateRecord, conflictKey string) error
	SelectWhereNotNull(ctx context.Context, table, selectCol, notNullCol string) ([]string, error)
}

// Ingestor normalizes parsed export rows into date-keyed records and writes
// them to the datastore in bounded batches.
type Ingestor struct {
	store   DateStore
	table   string
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewIngestor creates an ingestor writing to the given datastore table.
func NewIngestor(store DateStore, table string, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:  store,
		table:  table,
		logger: logger.With(slog.String("component", "ingestor")),
	}
}

// WithMetrics attaches pipeline counters. A nil argument leaves the ingestor
// unmetered.
func (in *Ingestor) WithMetrics(metrics *infrastructure.PipelineMetrics) *Ingestor {
	in.metrics = metrics
	return in
}

// IngestFile parses one export's contents under its filename-detected mapping
// and upserts the surviving records. A mapping miss is the only error return;
// row-level and batch-level failures are reported inside the result.
func (in *Ingestor) IngestFile(ctx context.Context, filename, contents string) (domain.IngestResult, error) {
	result := domain.IngestResult{File: filename}

	mapping, err := DetectMapping(filename)
	if err != nil {
		return result, err
	}

	rows := in.parse(mapping, contents)
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "no data rows found")
		return result, nil
	}

	result = in.Ingest(ctx, rows, mapping)
	result.File = filename
	return result, nil
}

// Ingest runs the merge/upsert orchestration over already-parsed rows.
func (in *Ingestor) Ingest(ctx context.Context, rows []domain.FieldRow, mapping Mapping) domain.IngestResult {
	var result domain.IngestResult

	existing := in.existingDates(ctx, mapping)
	records, skipped := in.merge(rows, mapping, existing)

	in.logger.InfoContext(ctx, "ingest merged records",
		slog.String("file_type", string(mapping.Type)),
		slog.Int("source_rows", len(rows)),
		slog.Int("skipped_rows", skipped),
		slog.Int("records", len(records)))

	if in.metrics != nil && skipped > 0 {
		in.metrics.IngestRowsSkipped.Add(ctx, int64(skipped),
			metric.WithAttributes(attribute.String("file_type", string(mapping.Type))))
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		if err := in.store.Upsert(ctx, in.table, batch, "date"); err != nil {
			in.logger.ErrorContext(ctx, "batch upsert failed",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Inserted += len(batch)
	}
	return result
}

func (in *Ingestor) parse(mapping Mapping, contents string) []domain.FieldRow {
	if mapping.Quoted {
		delim := mapping.Delimiter
		if delim == 0 {
			delim = ','
		}
		return ParseQuoted(contents, delim, mapping.SkipLines)
	}
	delim := mapping.Delimiter
	if delim == 0 {
		firstLine := contents
		if idx := strings.IndexByte(contents, '\n'); idx >= 0 {
			firstLine = contents[:idx]
		}
		delim = SniffDelimiter(firstLine)
	}
	return ParseDelimited(contents, delim)
}

// existingDates queries, per canonical target column, the set of dates that
// already hold a non-null value. A failed query degrades to an empty set so a
// datastore hiccup cannot block ingestion.
func (in *Ingestor) existingDates(ctx context.Context, mapping Mapping) map[string]map[string]struct{} {
	existing := make(map[string]map[string]struct{}, len(mapping.Columns))
	for _, column := range mapping.Columns {
		dates, err := in.store.SelectWhereNotNull(ctx, in.table, "date", column)
		set := make(map[string]struct{}, len(dates))
		if err != nil {
			in.logger.WarnContext(ctx, "existing-date lookup failed, treating as empty",
				slog.String("column", column),
				slog.String("error", err.Error()))
		} else {
			for _, d := range dates {
				set[d] = struct{}{}
			}
		}
		existing[column] = set
	}
	return existing
}

// merge folds source rows into one record per date, also counting the rows it
// drops. A date that already has a stored value in any mapped column is
// skipped entirely; this is column-level idempotency per mapping, deliberately
// coarser than per-cell.
func (in *Ingestor) merge(rows []domain.FieldRow, mapping Mapping, existing map[string]map[string]struct{}) ([]domain.DateRecord, int) {
	byDate := make(map[string]domain.DateRecord)
	skipped := 0
	for _, row := range rows {
		raw := firstDateValue(row)
		if raw == "" {
			skipped++
			continue
		}
		date, ok := dates.Normalize(raw)
		if !ok {
			skipped++
			continue
		}
		if anyColumnPopulated(date, mapping, existing) {
			skipped++
			continue
		}
		record, ok := byDate[date]
		if !ok {
			record = domain.NewDateRecord(date)
			byDate[date] = record
		}
		for source, column := range mapping.Columns {
			v := row.Get(source)
			if v.IsNull() {
				continue
			}
			if f, ok := v.Float(); ok {
				record[column] = f
			}
		}
	}

	records := make([]domain.DateRecord, 0, len(byDate))
	for _, r := range byDate {
		if r.HasData() {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date() < records[j].Date() })
	return records, skipped
}

func firstDateValue(row domain.FieldRow) string {
	for _, h := range dateHeaders {
		if s := row.Get(h).TextOr(""); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func anyColumnPopulated(date string, mapping Mapping, existing map[string]map[string]struct{}) bool {
	for _, column := range mapping.Columns {
		if _, ok := existing[column][date]; ok {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for log readability.
func (in *Ingestor) String() string {
	return fmt.Sprintf("ingestor(table=%s)", in.table)
}
