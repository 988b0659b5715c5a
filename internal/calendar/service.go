package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"databridge/internal/dates"
	"databridge/internal/infrastructure"
	"databridge/pkg/contracts/domain"
)

// fetchBatchSize bounds how many tickers go into one reference request.
const fetchBatchSize = 50

// tickerTable is the datastore table holding the configured calendar tickers.
const tickerTable = "economic_calendar_tickers"

// ReferenceFetcher is the slice of the terminal gateway the service needs.
type ReferenceFetcher interface {
	GetReferenceData(ctx context.Context, tickers, fields []string) (map[string]domain.FieldRow, error)
}

// TickerSource lists configured tickers when the request does not name any.
type TickerSource interface {
	SelectWhereNotNull(ctx context.Context, table, selectCol, notNullCol string) ([]string, error)
}

// Service runs calendar classification over ticker batches.
type Service struct {
	terminal ReferenceFetcher
	tickers  TickerSource
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *infrastructure.PipelineMetrics
	now      func() time.Time
}

// NewService creates a calendar service. tickers may be nil when callers
// always provide explicit ticker lists.
func NewService(terminal ReferenceFetcher, tickers TickerSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		terminal: terminal,
		tickers:  tickers,
		logger:   logger.With(slog.String("component", "calendar_service")),
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithMetrics attaches pipeline counters. A nil argument leaves the service
// unmetered.
func (s *Service) WithMetrics(metrics *infrastructure.PipelineMetrics) *Service {
	s.metrics = metrics
	return s
}

// Run classifies every ticker independently and returns the surviving events
// together with per-ticker and per-batch error strings. An empty ticker list
// falls back to the configured datastore table; having no tickers at all is
// the only error return.
func (s *Service) Run(ctx context.Context, tickers []string) (domain.CalendarResult, error) {
	if len(tickers) == 0 {
		loaded, err := s.loadConfiguredTickers(ctx)
		if err != nil {
			return domain.CalendarResult{}, err
		}
		tickers = loaded
	}
	if len(tickers) == 0 {
		return domain.CalendarResult{}, fmt.Errorf("no tickers provided and none configured in %s", tickerTable)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result := domain.CalendarResult{
		Events: []domain.CalendarEvent{},
		Errors: []string{},
		From:   today.Format(dates.ISO),
		To:     today.AddDate(0, 0, ForwardWindowDays).Format(dates.ISO),
	}

	for start := 0; start < len(tickers); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		batch := tickers[start:end]

		reference, err := s.terminal.GetReferenceData(ctx, batch, EventFields)
		if err != nil {
			msg := fmt.Sprintf("batch %d: %v", start/fetchBatchSize+1, err)
			s.logger.ErrorContext(ctx, "calendar batch fetch failed", slog.String("error", msg))
			result.Errors = append(result.Errors, msg)
			continue
		}

		for ticker, fields := range reference {
			if fields.HasError() {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", ticker, fields.ErrorText()))
				continue
			}
			event, ok := s.classifyTicker(ctx, ticker, fields, today, now)
			if !ok {
				continue
			}
			if err := s.validate.Struct(event); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid event: %v", ticker, err))
				continue
			}
			result.Events = append(result.Events, event)
		}
	}

	result.Count = len(result.Events)
	if s.metrics != nil && result.Count > 0 {
		s.metrics.CalendarEvents.Add(ctx, int64(result.Count))
	}
	s.logger.InfoContext(ctx, "calendar classification complete",
		slog.Int("tickers", len(tickers)),
		slog.Int("events", result.Count),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

// classifyTicker runs the two-pass date resolution and the classifier for a
// single ticker. The second lookup is a one-field reference request issued
// only when the first pass found no settled date.
func (s *Service) classifyTicker(ctx context.Context, ticker string, fields domain.FieldRow, today, now time.Time) (domain.CalendarEvent, bool) {
	res := ResolveReleaseDate(fields, today)

	var futureDate time.Time
	futureMarked := false
	if !res.Settled {
		if d, ok := s.lookupFutureRelease(ctx, ticker); ok && res.Date.IsZero() {
			futureDate = d
			futureMarked = true
		}
	}

	return Classify(ticker, fields, res, futureDate, futureMarked, today, now)
}

func (s *Service) lookupFutureRelease(ctx context.Context, ticker string) (time.Time, bool) {
	reference, err := s.terminal.GetReferenceData(ctx, []string{ticker}, []string{FieldFutureRelease})
	if err != nil {
		s.logger.DebugContext(ctx, "future-release lookup failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()))
		return time.Time{}, false
	}
	row, ok := reference[ticker]
	if !ok || row.HasError() {
		return time.Time{}, false
	}
	return dates.ParseCompact(row.Get(FieldFutureRelease).TextOr(""))
}

func (s *Service) loadConfiguredTickers(ctx context.Context) ([]string, error) {
	if s.tickers == nil {
		return nil, nil
	}
	list, err := s.tickers.SelectWhereNotNull(ctx, tickerTable, "ticker", "ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to load configured tickers: %w", err)
	}
	return list, nil
}
