package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"databridge/internal/infrastructure"
	"databridge/internal/ingest"
	"databridge/pkg/contracts/domain"
)

// ExportService processes delimited export drops: listing the recognized
// files in the export directory and running each through the ingestor.
type ExportService struct {
	discovery *ingest.Discovery
	ingestor  *ingest.Ingestor
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewExportService creates the export processor over the given directory.
func NewExportService(exportDir string, ingestor *ingest.Ingestor, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		discovery: ingest.NewDiscovery(exportDir),
		ingestor:  ingestor,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "export_service")),
	}
}

// List returns the recognized export files currently on disk, oldest first.
func (s *ExportService) List(ctx context.Context) ([]ingest.ExportFile, error) {
	files, err := s.discovery.Find()
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "exports listed", slog.Int("files", len(files)))
	return files, nil
}

// ProcessAll ingests every recognized export file. Files that fail to read or
// parse are reported in their result entry; processing continues with the
// remaining files.
func (s *ExportService) ProcessAll(ctx context.Context) ([]domain.IngestResult, error) {
	files, err := s.discovery.Find()
	if err != nil {
		return nil, err
	}

	results := make([]domain.IngestResult, 0, len(files))
	for _, file := range files {
		results = append(results, s.processFile(ctx, file))
	}

	if s.metrics != nil && s.metrics.IngestRuns != nil {
		s.metrics.IngestRuns.Add(ctx, 1)
	}
	return results, nil
}

// Process ingests a single named export file from the export directory.
func (s *ExportService) Process(ctx context.Context, name string) (domain.IngestResult, error) {
	files, err := s.discovery.Find()
	if err != nil {
		return domain.IngestResult{}, err
	}
	for _, file := range files {
		if file.Name == name {
			return s.processFile(ctx, file), nil
		}
	}
	return domain.IngestResult{}, fmt.Errorf("export %q not found", name)
}

func (s *ExportService) processFile(ctx context.Context, file ingest.ExportFile) domain.IngestResult {
	contents, err := os.ReadFile(file.Path)
	if err != nil {
		s.logger.WarnContext(ctx, "export read failed",
			slog.String("file", file.Name),
			slog.String("error", err.Error()))
		return domain.IngestResult{
			File:   file.Name,
			Errors: []string{fmt.Sprintf("read: %v", err)},
		}
	}

	result, err := s.ingestor.IngestFile(ctx, file.Name, string(contents))
	if err != nil {
		return domain.IngestResult{
			File:   file.Name,
			Errors: []string{err.Error()},
		}
	}
	s.logger.InfoContext(ctx, "export processed",
		slog.String("file", file.Name),
		slog.Int("inserted", result.Inserted),
		slog.Int("errors", len(result.Errors)))
	return result
}
