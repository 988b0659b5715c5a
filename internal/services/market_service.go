package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"databridge/internal/dates"
	"databridge/internal/infrastructure"
	"databridge/internal/terminal"
	"databridge/pkg/contracts/domain"
)

// defaultStartDate is the earliest observation the datastore tracks; updates
// with no explicit start fetch the full history.
const defaultStartDate = "1983-01-01"

// updateBatchSize bounds the row count of one datastore write during an
// update run.
const updateBatchSize = 100

// fetchConcurrency caps parallel historical requests against the gateway.
const fetchConcurrency = 4

// HistoricalFetcher is the slice of the terminal client the update pipeline
// needs.
type HistoricalFetcher interface {
	GetHistoricalData(ctx context.Context, ticker string, fields []string, opts terminal.HistoricalOptions) ([]domain.FieldRow, error)
}

// RecordStore is the slice of the datastore client the update pipeline needs.
type RecordStore interface {
	Upsert(ctx context.Context, table string, rows []domain.DateRecord, conflictKey string) error
}

// MarketService runs the scheduled market-data update: fetch every mapped
// ticker's history from the terminal, pivot fields into date-keyed records,
// and upsert them into the datastore.
type MarketService struct {
	terminal HistoricalFetcher
	store    RecordStore
	table    string
	mappings []domain.FieldMapping
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewMarketService creates the update pipeline writing to the given table.
func NewMarketService(fetcher HistoricalFetcher, store RecordStore, table string, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		terminal: fetcher,
		store:    store,
		table:    table,
		mappings: FieldMappings,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "market_service")),
		now:      time.Now,
	}
}

// Update fetches and upserts all mapped columns for the given date range.
// Empty bounds default to the full tracked history ending today. Per-ticker
// fetch failures are collected in the result; only a datastore write failure
// marks the run unsuccessful.
func (s *MarketService) Update(ctx context.Context, fromDate, toDate string) (domain.UpdateResult, error) {
	if toDate == "" {
		toDate = s.now().Format(dates.ISO)
	}
	if fromDate == "" {
		fromDate = defaultStartDate
	}

	s.logger.InfoContext(ctx, "market update started",
		slog.String("from", fromDate),
		slog.String("to", toDate),
		slog.Int("mappings", len(s.mappings)))

	groups := groupByTicker(s.mappings)

	var (
		mu      sync.Mutex
		records = make(map[string]domain.DateRecord)
		errs    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			rows, err := s.terminal.GetHistoricalData(gctx, group.ticker, group.fields(), terminal.HistoricalOptions{
				StartDate: fromDate,
				EndDate:   toDate,
			})
			if err != nil {
				s.logger.WarnContext(gctx, "ticker fetch failed",
					slog.String("ticker", group.ticker),
					slog.String("error", err.Error()))
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", group.ticker, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, row := range rows {
				date, ok := dates.Normalize(row.Get("date").TextOr(""))
				if !ok {
					continue
				}
				rec, exists := records[date]
				if !exists {
					rec = domain.NewDateRecord(date)
					records[date] = rec
				}
				for _, m := range group.mappings {
					if f, ok := row.Get(m.Field).Float(); ok {
						rec[m.Column] = f
					}
				}
			}
			return nil
		})
	}
	g.Wait()

	rows := make([]domain.DateRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasData() {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date() < rows[j].Date() })

	result := domain.UpdateResult{Success: true, Errors: errs}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if len(rows) == 0 {
		s.logger.InfoContext(ctx, "market update produced no records",
			slog.Int("fetch_errors", len(errs)))
		return result, nil
	}

	for start := 0; start < len(rows); start += updateBatchSize {
		end := min(start+updateBatchSize, len(rows))
		batch := rows[start:end]
		err := s.store.Upsert(ctx, s.table, batch, "date")
		infrastructure.RecordUpsertMetrics(ctx, s.metrics, s.table, len(batch), err)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("datastore write: %v", err))
			s.logger.ErrorContext(ctx, "market update write failed",
				slog.Int("batch_start", start),
				slog.String("error", err.Error()))
			return result, nil
		}
		result.Inserted += len(batch)
	}

	s.logger.InfoContext(ctx, "market update completed",
		slog.Int("inserted", result.Inserted),
		slog.Int("fetch_errors", len(errs)))
	return result, nil
}
