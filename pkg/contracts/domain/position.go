package domain

// Position is one row of the position-history report. The repository scans a
// fixed 20-column result set into this shape; nil means the source column was
// null.
type Position struct {
	Strategy       string   `json:"strategy,omitempty"`
	TradeGroup     string   `json:"trade_group,omitempty"`
	CompanySymbol  string   `json:"company_symbol,omitempty"`
	Description    string   `json:"description,omitempty"`
	SecurityType   string   `json:"security_type,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	TerminalTicker string   `json:"terminal_ticker,omitempty"`
	Sector         string   `json:"sector,omitempty"`
	Country        string   `json:"country,omitempty"`
	LongShort      string   `json:"long_short,omitempty"`
	Quantity       *float64 `json:"quantity"`
	AvgPrice       *float64 `json:"avg_price"`
	ClosePrice     *float64 `json:"close_price"`
	PriceProfit    *float64 `json:"price_profit"`
	Interest       *float64 `json:"interest"`
	Dividends      *float64 `json:"dividends"`
	Value          *float64 `json:"value"`
	Exposure       *float64 `json:"exposure"`
	ExposurePctNAV *float64 `json:"exposure_pct_nav"`
	DayProfit      *float64 `json:"day_profit"`
}

// PortfolioReport is the full position report for one as-of date. FundNAV is
// taken from the last column of the first result row.
type PortfolioReport struct {
	FundNAV   *float64   `json:"fund_nav"`
	NAVDate   string     `json:"nav_date"`
	Positions []Position `json:"positions"`
}
