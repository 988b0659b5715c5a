package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"databridge/internal/infrastructure"
	"databridge/pkg/contracts/domain"
)

// fakeStore records upserts and serves canned not-null date sets.
type fakeStore struct {
	stored     map[string][]string // column -> dates with values
	batches    [][]domain.DateRecord
	failBatch  int // 1-based index of the batch to fail, 0 = never
	selectErr  error
	upsertCall int
}

func (f *fakeStore) Upsert(_ context.Context, _ string, rows []domain.DateRecord, conflictKey string) error {
	f.upsertCall++
	if conflictKey != "date" {
		return fmt.Errorf("unexpected conflict key %s", conflictKey)
	}
	if f.failBatch != 0 && f.upsertCall == f.failBatch {
		return errors.New("datastore write rejected")
	}
	f.batches = append(f.batches, rows)
	return nil
}

func (f *fakeStore) SelectWhereNotNull(_ context.Context, _, _, notNullCol string) ([]string, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.stored[notNullCol], nil
}

func macroContents(datesAndValues ...string) string {
	var b strings.Builder
	b.WriteString("Date\tMedian % Change in Actual EPS Q over Q 1 Yr Ago\n")
	for i := 0; i+1 < len(datesAndValues); i += 2 {
		b.WriteString(datesAndValues[i] + "\t" + datesAndValues[i+1] + "\n")
	}
	return b.String()
}

func TestIngestFileMergesAndUpserts(t *testing.T) {
	store := &fakeStore{}
	in := NewIngestor(store, "market_data", nil)

	contents := macroContents("Jan-24", "1.5", "Feb-24", "2.5")
	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Empty(t, result.Errors)

	require.Len(t, store.batches, 1)
	batch := store.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "2024-01-01", batch[0].Date())
	assert.Equal(t, 1.5, batch[0]["estimates_median_pct_change_actual_eps_q_over_q_1yr_ago"])
	assert.Equal(t, "2024-02-01", batch[1].Date())
}

func TestIngestFileUnknownType(t *testing.T) {
	in := NewIngestor(&fakeStore{}, "market_data", nil)
	_, err := in.IngestFile(context.Background(), "mystery.txt", "a,b\n1,2\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown file type")
}

func TestIngestIdempotentRerun(t *testing.T) {
	// First run inserts both dates.
	store := &fakeStore{}
	in := NewIngestor(store, "market_data", nil)
	contents := macroContents("Jan-24", "1.5", "Feb-24", "2.5")

	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	require.Equal(t, 2, result.Inserted)

	// Second run: the store now reports those dates as populated for one of
	// the mapped columns, so every row is skipped.
	store2 := &fakeStore{stored: map[string][]string{
		"estimates_median_pct_change_actual_eps_q_over_q_1yr_ago": {"2024-01-01", "2024-02-01"},
	}}
	in2 := NewIngestor(store2, "market_data", nil)
	result2, err := in2.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	assert.Equal(t, 0, result2.Inserted)
	assert.Empty(t, store2.batches)
}

func TestIngestSkipsWholeRowWhenAnyMappedColumnPopulated(t *testing.T) {
	// Column-granularity guard: a date with data in ANY mapped column skips
	// the row even though other mapped columns are still empty.
	store := &fakeStore{stored: map[string][]string{
		"estimates_median_pct_change_eps_estimates_q_over_q_1yr_ago": {"2024-01-01"},
	}}
	in := NewIngestor(store, "market_data", nil)

	contents := macroContents("Jan-24", "1.5")
	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
}

func TestIngestSkipsUnparseableDatesAndDateOnlyRecords(t *testing.T) {
	store := &fakeStore{}
	in := NewIngestor(store, "market_data", nil)

	contents := "Date\tMedian % Change in Actual EPS Q over Q 1 Yr Ago\n" +
		"not a date\t1.5\n" + // unparseable date: skipped
		"Jan-24\tnot a number\n" + // coercion failure leaves record empty
		"\t2.0\n" // no date at all
	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Empty(t, store.batches)
}

func TestIngestSelectFailureDegradesToEmptySet(t *testing.T) {
	store := &fakeStore{selectErr: errors.New("datastore offline")}
	in := NewIngestor(store, "market_data", nil)

	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", macroContents("Jan-24", "1.5"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
}

func TestIngestBatchPartialFailure(t *testing.T) {
	// 250 distinct dates produce three batches of 100/100/50; the second
	// fails but the first and third still land.
	store := &fakeStore{failBatch: 2}
	in := NewIngestor(store, "market_data", nil)

	rows := make([]domain.FieldRow, 0, 250)
	for i := 0; i < 250; i++ {
		rows = append(rows, domain.FieldRow{
			"date": domain.Str(fmt.Sprintf("%04d-06-15", 1500+i)),
			"median % change in actual eps q over q 1 yr ago": domain.Num(float64(i)),
		})
	}
	mapping, err := DetectMapping("MacroDataExport.txt")
	require.NoError(t, err)

	result := in.Ingest(context.Background(), rows, mapping)
	assert.Equal(t, 150, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "datastore write rejected")
	assert.Len(t, store.batches, 2)
}

func TestIngestOilDemandQuotedFile(t *testing.T) {
	store := &fakeStore{}
	in := NewIngestor(store, "market_data", nil)

	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(fmt.Sprintf("metadata line %d\n", i))
	}
	b.WriteString("Date,PX_LAST\n")
	b.WriteString("\"Jan 2, 2024\",101.25\n")
	result, err := in.IngestFile(context.Background(), "OilDemand.csv", b.String())
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)
	require.Len(t, store.batches, 1)
	assert.Equal(t, "2024-01-02", store.batches[0][0].Date())
	assert.Equal(t, 101.25, store.batches[0][0]["oil_supply_demand_index"])
}

func TestIngestCountsSkippedRows(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := infrastructure.InitializeOTel(nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	store := &fakeStore{}
	in := NewIngestor(store, "market_data", nil).WithMetrics(metrics)

	// One good row, one with an unparsable date.
	contents := macroContents("Jan-24", "1.5", "not-a-date", "2.5")
	result, err := in.IngestFile(context.Background(), "MacroDataExport.txt", contents)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "ingest_rows_skipped_total")
}
