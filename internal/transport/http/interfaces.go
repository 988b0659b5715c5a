package http

import (
	"context"
	"encoding/json"

	"databridge/internal/fundadmin"
	"databridge/internal/ingest"
	"databridge/internal/services"
	"databridge/pkg/contracts/domain"
)

// QuoteReader is the quote surface consumed by the quote and series handlers.
type QuoteReader interface {
	Prices(ctx context.Context, tickers []string) (map[string]float64, error)
	Quotes(ctx context.Context, tickers []string) ([]domain.Quote, error)
	Historical(ctx context.Context, symbols, fields []string, startDate, endDate string) (map[string][]domain.FieldRow, []string)
	Reference(ctx context.Context, symbols, fields []string) (map[string][]domain.FieldRow, []string, error)
}

// MarketUpdater triggers the market-data update pipeline.
type MarketUpdater interface {
	Update(ctx context.Context, fromDate, toDate string) (domain.UpdateResult, error)
}

// CalendarRunner runs the economic-calendar classification.
type CalendarRunner interface {
	Run(ctx context.Context, tickers []string) (domain.CalendarResult, error)
}

// ExportProcessor lists and ingests export file drops.
type ExportProcessor interface {
	List(ctx context.Context) ([]ingest.ExportFile, error)
	ProcessAll(ctx context.Context) ([]domain.IngestResult, error)
	Process(ctx context.Context, name string) (domain.IngestResult, error)
}

// FundAdminClient is the fund-administrator API surface the fund handler
// passes through.
type FundAdminClient interface {
	GetPortfolio(ctx context.Context, fundID, valuationDate string, opts fundadmin.PortfolioOptions) (json.RawMessage, error)
	GetPortfolioTrades(ctx context.Context, fundParentID, start, end, dateType string) (json.RawMessage, error)
	GetNAVSheet(ctx context.Context, fundID, valuationDate string) (json.RawMessage, error)
	GetFundDetails(ctx context.Context, fundID string) (json.RawMessage, error)
}

// PositionReader serves the position-history report.
type PositionReader interface {
	Report(ctx context.Context, asOf string) (domain.PortfolioReport, error)
}

// HealthReporter reports bridge and gateway health.
type HealthReporter interface {
	Check(ctx context.Context) services.HealthStatus
	Liveness(ctx context.Context) services.LivenessStatus
}
