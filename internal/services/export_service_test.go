package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"databridge/internal/ingest"
	"databridge/pkg/contracts/domain"
)

type exportStore struct {
	upserts [][]domain.DateRecord
}

func (s *exportStore) Upsert(_ context.Context, _ string, rows []domain.DateRecord, _ string) error {
	s.upserts = append(s.upserts, rows)
	return nil
}

func (s *exportStore) SelectWhereNotNull(context.Context, string, string, string) ([]string, error) {
	return nil, nil
}

const macroExport = "Date\tMedian % Change in Actual EPS Q over Q 1 Yr Ago\n" +
	"2024-03-11\t4.2\n" +
	"2024-03-12\t4.5\n"

func newTestExportService(t *testing.T, store *exportStore) (*ExportService, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ingestor := ingest.NewIngestor(store, "market_data", logger)
	return NewExportService(dir, ingestor, nil, logger), dir
}

func writeExport(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestListReturnsRecognizedFilesOnly(t *testing.T) {
	svc, dir := newTestExportService(t, &exportStore{})
	writeExport(t, dir, "MacroDataExport_0312.txt", macroExport)
	writeExport(t, dir, "notes.txt", "irrelevant")

	files, err := svc.List(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "MacroDataExport_0312.txt", files[0].Name)
	assert.Equal(t, ingest.FileTypeMacro, files[0].Type)
}

func TestProcessAllIngestsEachFile(t *testing.T) {
	store := &exportStore{}
	svc, dir := newTestExportService(t, store)
	writeExport(t, dir, "MacroDataExport_0312.txt", macroExport)

	results, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "MacroDataExport_0312.txt", results[0].File)
	assert.Equal(t, 2, results[0].Inserted)
	assert.Empty(t, results[0].Errors)

	require.Len(t, store.upserts, 1)
	assert.Len(t, store.upserts[0], 2)
	rec := store.upserts[0][0]
	assert.Equal(t, "2024-03-11", rec.Date())
	assert.Equal(t, 4.2, rec["estimates_median_pct_change_actual_eps_q_over_q_1yr_ago"])
}

func TestProcessSingleFileByName(t *testing.T) {
	store := &exportStore{}
	svc, dir := newTestExportService(t, store)
	writeExport(t, dir, "MacroDataExport_0312.txt", macroExport)
	writeExport(t, dir, "DiffusionIndexExport_0312.txt", "Date\tHF Flow - Mag7 Ownership\n2024-03-12\t0.8\n")

	result, err := svc.Process(context.Background(), "DiffusionIndexExport_0312.txt")
	require.NoError(t, err)

	assert.Equal(t, "DiffusionIndexExport_0312.txt", result.File)
	assert.Equal(t, 1, result.Inserted)
}

func TestProcessUnknownFileName(t *testing.T) {
	svc, _ := newTestExportService(t, &exportStore{})

	_, err := svc.Process(context.Background(), "missing.txt")

	assert.Error(t, err)
}

func TestProcessAllMissingDirectory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ingestor := ingest.NewIngestor(&exportStore{}, "market_data", logger)
	svc := NewExportService(filepath.Join(t.TempDir(), "gone"), ingestor, nil, logger)

	_, err := svc.ProcessAll(context.Background())

	assert.Error(t, err)
}
