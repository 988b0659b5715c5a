package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"databridge/internal/dates"
	"databridge/internal/infrastructure"
	"databridge/internal/quotes"
	"databridge/internal/terminal"
	"databridge/pkg/contracts/domain"
)

// ReferenceFetcher is the slice of the terminal client the quote surface
// needs.
type ReferenceFetcher interface {
	GetReferenceData(ctx context.Context, tickers, fields []string) (map[string]domain.FieldRow, error)
}

// QuoteService serves point-in-time prices and quote surfaces from the
// terminal gateway, applying the market-session price resolution rules.
type QuoteService struct {
	reference  ReferenceFetcher
	historical HistoricalFetcher
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewQuoteService creates the quote surface over the terminal client.
func NewQuoteService(reference ReferenceFetcher, historical HistoricalFetcher, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *QuoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteService{
		reference:  reference,
		historical: historical,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "quote_service")),
		now:        time.Now,
	}
}

// Prices resolves one price per ticker using the session-aware field
// preference. Tickers the terminal rejects or that carry no usable price are
// omitted from the result rather than reported as errors.
func (s *QuoteService) Prices(ctx context.Context, tickers []string) (map[string]float64, error) {
	cleaned := cleanTickers(tickers)
	if len(cleaned) == 0 {
		return map[string]float64{}, nil
	}

	rows, err := s.reference.GetReferenceData(ctx, cleaned, quotes.PriceFields)
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(rows))
	now := s.now()
	for ticker, fields := range rows {
		if fields.HasError() {
			s.logger.WarnContext(ctx, "ticker rejected",
				slog.String("ticker", ticker),
				slog.String("error", fields.ErrorText()))
			continue
		}
		if price, ok := quotes.ResolvePrice(fields, now); ok {
			result[ticker] = price
		}
	}

	if s.metrics != nil && s.metrics.QuotesResolved != nil {
		s.metrics.QuotesResolved.Add(ctx, int64(len(result)))
	}
	s.logger.InfoContext(ctx, "prices resolved",
		slog.Int("requested", len(cleaned)),
		slog.Int("resolved", len(result)),
		slog.Bool("in_session", quotes.InSession(now)))
	return result, nil
}

// Quotes returns the full sparse quote surface for each ticker. Rejected
// tickers are dropped.
func (s *QuoteService) Quotes(ctx context.Context, tickers []string) ([]domain.Quote, error) {
	cleaned := cleanTickers(tickers)
	if len(cleaned) == 0 {
		return []domain.Quote{}, nil
	}

	rows, err := s.reference.GetReferenceData(ctx, cleaned, quotes.QuoteFields)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]domain.Quote, 0, len(cleaned))
	for _, ticker := range cleaned {
		fields, ok := rows[ticker]
		if !ok || fields.HasError() {
			continue
		}
		if q, ok := quotes.BuildQuote(ticker, fields, now); ok {
			result = append(result, q)
		}
	}
	return result, nil
}

// Historical fetches dated series for each symbol, trying alternate ticker
// symbologies when the primary form returns nothing. Results are keyed by the
// caller's original symbol.
func (s *QuoteService) Historical(ctx context.Context, symbols, fields []string, startDate, endDate string) (map[string][]domain.FieldRow, []string) {
	result := make(map[string][]domain.FieldRow, len(symbols))
	errs := []string{}

	for _, symbol := range symbols {
		var (
			records []domain.FieldRow
			lastErr error
		)
		for _, candidate := range TickerVariants(NormalizeTicker(symbol)) {
			recs, err := s.historical.GetHistoricalData(ctx, candidate, fields, terminal.HistoricalOptions{
				StartDate: startDate,
				EndDate:   endDate,
			})
			if err != nil {
				lastErr = err
				continue
			}
			if len(recs) > 0 {
				records = recs
				break
			}
		}
		if len(records) == 0 && lastErr != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", symbol, lastErr))
		}
		result[symbol] = records
	}
	return result, errs
}

// Reference fetches current field values and shapes each row as a one-element
// dated series so callers can treat reference and historical responses
// uniformly. Rows without a date are stamped with today.
func (s *QuoteService) Reference(ctx context.Context, symbols, fields []string) (map[string][]domain.FieldRow, []string, error) {
	rows, err := s.reference.GetReferenceData(ctx, symbols, fields)
	if err != nil {
		return nil, nil, err
	}

	today := s.now().Format(dates.ISO)
	result := make(map[string][]domain.FieldRow, len(rows))
	errs := []string{}
	for ticker, row := range rows {
		if row.HasError() {
			errs = append(errs, fmt.Sprintf("%s: %s", ticker, row.ErrorText()))
			continue
		}
		if row.Get("date").IsNull() {
			row["date"] = domain.Str(today)
		}
		result[ticker] = []domain.FieldRow{row}
	}
	return result, errs, nil
}

func cleanTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
