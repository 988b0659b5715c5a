package positions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	// Driver for the position-history DSN.
	_ "github.com/alexbrainman/odbc"

	apperrors "databridge/internal/errors"
	"databridge/pkg/contracts/domain"
)

// Defaults mirroring the production viewer configuration.
var (
	DefaultSecurityTypes      = []string{"Stock", "EquityOption", "LeveragedETF", "Futures"}
	DefaultExcludedStrategies = []string{"Risk Arbitrage"}
)

// Config holds the position-history source settings. DSN is an ODBC data
// source name string ("DSN=...").
type Config struct {
	DSN                string
	Portfolio          string
	SecurityTypes      []string
	ExcludedStrategies []string
}

// Repository reads position-history rows for one portfolio from the
// administrator's viewer database.
type Repository struct {
	db        *sqlx.DB
	portfolio string
	secTypes  []string
	excluded  []string
	logger    *slog.Logger
}

// positionRow is the fixed 20-column result contract of the history query.
// Column order matters: PortfolioNAV must stay last, the report reads fund
// NAV from it.
type positionRow struct {
	Strategy      sql.NullString  `db:"STRATEGY"`
	TradeGroup    sql.NullString  `db:"TRADE_GROUP"`
	CompanySymbol sql.NullString  `db:"COMPANY_SYMBOL"`
	Description   sql.NullString  `db:"DESCRIPTION"`
	SecurityType  sql.NullString  `db:"SECURITY_TYPE"`
	Currency      sql.NullString  `db:"Currency"`
	Ticker        sql.NullString  `db:"BBG_TICKER"`
	Sector        sql.NullString  `db:"SECTOR"`
	Country       sql.NullString  `db:"COUNTRY"`
	LongShort     sql.NullString  `db:"LONG_SHORT"`
	Quantity      sql.NullFloat64 `db:"QUANTITY"`
	AvgPrice      sql.NullFloat64 `db:"AVG_PRICE"`
	ClosePrice    sql.NullFloat64 `db:"CLOSE_PRICE"`
	PriceProfit   sql.NullFloat64 `db:"PRICE_PROFIT"`
	Interest      sql.NullFloat64 `db:"INTEREST"`
	Dividends     sql.NullFloat64 `db:"DIVIDENDS"`
	Value         sql.NullFloat64 `db:"VALUE"`
	Exposure      sql.NullFloat64 `db:"EXPOSURE"`
	DayProfit     sql.NullFloat64 `db:"DAY_PROFIT"`
	PortfolioNAV  sql.NullFloat64 `db:"PORTFOLIO_NAV"`
}

const historyQuery = `
SELECT STRATEGY, TRADE_GROUP, COMPANY_SYMBOL, DESCRIPTION, SECURITY_TYPE,
       SEC_CCY AS Currency, BBG_TICKER, SECTOR, COUNTRY, LONG_SHORT, QUANTITY,
       AVG_PRICE, CLOSE_PRICE, PRICE_PROFIT, INTEREST, DIVIDENDS, VALUE, EXPOSURE,
       DAY_PROFIT, PORTFOLIO_NAV
FROM psc_position_history
WHERE PORTFOLIO = ? AND POSN_DATE = ?
  AND SECURITY_TYPE IN (?)
  AND STRATEGY NOT IN (?)
ORDER BY STRATEGY, TRADE_GROUP, COMPANY_SYMBOL`

// NewRepository opens the ODBC source and returns a repository for the
// configured portfolio. The connection is verified lazily on first query.
func NewRepository(cfg Config, logger *slog.Logger) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("positions DSN is required")
	}
	if cfg.Portfolio == "" {
		return nil, fmt.Errorf("positions portfolio name is required")
	}
	if len(cfg.SecurityTypes) == 0 {
		cfg.SecurityTypes = DefaultSecurityTypes
	}
	if len(cfg.ExcludedStrategies) == 0 {
		cfg.ExcludedStrategies = DefaultExcludedStrategies
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("odbc", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open positions source: %w", err)
	}

	return &Repository{
		db:        db,
		portfolio: cfg.Portfolio,
		secTypes:  cfg.SecurityTypes,
		excluded:  cfg.ExcludedStrategies,
		logger:    logger.With(slog.String("component", "positions_repository")),
	}, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Report fetches the full position report for the as-of date (YYYY-MM-DD or
// YYYYMMDD). Fund NAV comes from the first row's last column; exposure
// percentages are derived from it.
func (r *Repository) Report(ctx context.Context, asOf string) (domain.PortfolioReport, error) {
	compact := compactDate(asOf)
	report := domain.PortfolioReport{
		NAVDate:   isoDate(compact),
		Positions: []domain.Position{},
	}

	query, args, err := sqlx.In(historyQuery, r.portfolio, compact, r.secTypes, r.excluded)
	if err != nil {
		return report, fmt.Errorf("failed to expand positions query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []positionRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return report, apperrors.NewPositionsError("position history query failed", err).
			WithContext("as_of", report.NAVDate)
	}

	if len(rows) > 0 && rows[0].PortfolioNAV.Valid {
		nav := rows[0].PortfolioNAV.Float64
		report.FundNAV = &nav
	}
	for _, row := range rows {
		report.Positions = append(report.Positions, mapPosition(row, report.FundNAV))
	}

	r.logger.InfoContext(ctx, "position report fetched",
		slog.String("as_of", report.NAVDate),
		slog.Int("positions", len(report.Positions)))
	return report, nil
}

// mapPosition converts one result row, deriving the exposure percentage when
// NAV is known. Options with no terminal ticker fall back to the raw company
// symbol so quote lookups still resolve.
func mapPosition(row positionRow, fundNAV *float64) domain.Position {
	pos := domain.Position{
		Strategy:       cleanString(row.Strategy),
		TradeGroup:     cleanString(row.TradeGroup),
		CompanySymbol:  cleanString(row.CompanySymbol),
		Description:    cleanString(row.Description),
		SecurityType:   cleanString(row.SecurityType),
		Currency:       cleanString(row.Currency),
		TerminalTicker: cleanString(row.Ticker),
		Sector:         cleanString(row.Sector),
		Country:        cleanString(row.Country),
		LongShort:      cleanString(row.LongShort),
		Quantity:       floatPtr(row.Quantity),
		AvgPrice:       floatPtr(row.AvgPrice),
		ClosePrice:     floatPtr(row.ClosePrice),
		PriceProfit:    floatPtr(row.PriceProfit),
		Interest:       floatPtr(row.Interest),
		Dividends:      floatPtr(row.Dividends),
		Value:          floatPtr(row.Value),
		Exposure:       floatPtr(row.Exposure),
		DayProfit:      floatPtr(row.DayProfit),
	}

	if pos.TerminalTicker == "" && pos.CompanySymbol != "" && isOption(pos.SecurityType) {
		pos.TerminalTicker = pos.CompanySymbol
	}

	if pos.Exposure != nil && fundNAV != nil && *fundNAV != 0 {
		pct := *pos.Exposure / *fundNAV * 100
		pos.ExposurePctNAV = &pct
	}
	return pos
}

func isOption(securityType string) bool {
	switch strings.ToUpper(securityType) {
	case "EQUITYOPTION", "OPTION":
		return true
	}
	return false
}

func cleanString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return strings.TrimSpace(v.String)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// compactDate strips separators down to the yyyymmdd the viewer stores.
func compactDate(v string) string {
	replacer := strings.NewReplacer("-", "", "/", "")
	s := replacer.Replace(v)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

func isoDate(compact string) string {
	if len(compact) != 8 {
		return compact
	}
	return compact[:4] + "-" + compact[4:6] + "-" + compact[6:8]
}
