package services

import "databridge/pkg/contracts/domain"

// FieldMappings binds every market_data column the update pipeline maintains
// to its source terminal ticker and field. The pipeline groups these by
// ticker so tickers feeding several columns are fetched once.
var FieldMappings = []domain.FieldMapping{
	{Column: "gdp_nowcast_ny_fed", Ticker: "NOWCYQCP Index", Field: "PX_LAST"},
	{Column: "gdp_nowcast_atlanta_fed", Ticker: "GDGCAFJP Index", Field: "PX_LAST"},
	{Column: "gdp_nowcast_bloomberg", Ticker: "BENWUSGC Index", Field: "PX_LAST"},
	{Column: "cpi_truflation", Ticker: "TRUFUSYY Index", Field: "PX_LAST"},
	{Column: "cpi_truflation_core", Ticker: "TRUFUSCZ Index", Field: "PX_LAST"},
	{Column: "cpi_cleveland_fed", Ticker: "CLEVCPYC Index", Field: "PX_LAST"},
	{Column: "cpi_core_cleveland_fed", Ticker: "CLEVXCYC Index", Field: "PX_LAST"},
	{Column: "spx_index_close_price", Ticker: "SPX Index", Field: "PX_LAST"},
	{Column: "spx_pct_members_14d_rsi_above_70", Ticker: "SPX Index", Field: "PCT_MEMB_WITH_14D_RSI_GT_70"},
	{Column: "spx_pct_members_above_upper_bollinger", Ticker: "SPX Index", Field: "PCT_MEMB_PX_ABV_UPPER_BOLL_BAND"},
	{Column: "spx_up_vs_down_volume", Ticker: ".UPVSDOWN U Index", Field: "PX_LAST"},
	{Column: "spx_pct_members_new_52w_high", Ticker: "SPX Index", Field: "PCT_MEMBERS_WITH_NEW_52W_HIGHS"},
	{Column: "spx_30d_rsi", Ticker: "SPX Index", Field: "RSI 30D"},
	{Column: "spx_rsi_14d", Ticker: "SPX Index", Field: "RSI 14D"},
	{Column: "vix_25_delta_call_to_put_ratio", Ticker: ".25DVIX U Index", Field: "PX_LAST"},
	{Column: "spx_pct_members_below_lower_bollinger", Ticker: "SPX Index", Field: "PCT_MEMB_PX_BLW_LWR_BOLL_BAND"},
	{Column: "spx_pct_members_above_50d_ma", Ticker: "SPX Index", Field: "PCT_MEMB_PX_GT_50D_MOV_AVG"},
	{Column: "spx_pct_members_above_10d_ma", Ticker: "SPX Index", Field: "PCT_MEMB_PX_GT_10D_MOV_AVG"},
	{Column: "spx_pct_members_14d_rsi_below_30", Ticker: "SPX Index", Field: "PCT_MEMB_WITH_14D_RSI_LT_30"},
	{Column: "nyse_new_highs_vs_new_lows", Ticker: "NWHLSENY Index", Field: "PX_LAST"},
	{Column: "vix_1_2_month_spread", Ticker: ".VIX1-2 Index", Field: "PX_LAST"},
	{Column: "cboe_implied_1m_correlation", Ticker: "COR1M Index", Field: "PX_LAST"},
	{Column: "redbook_same_store_sales_yoy", Ticker: "REDSWYOY Index", Field: "PX_LAST"},
	{Column: "asa_temp_staffing_index_yoy", Ticker: "ASA INDX Index", Field: "PX_LAST"},
	{Column: "vix_index_close_price", Ticker: "VIX Index", Field: "PX_LAST"},
	{Column: "spx_put_call_ratio", Ticker: "PCUSEQTR Index", Field: "PX_LAST"},
}

// tickerGroup is the set of field-to-column bindings sourced from one ticker.
type tickerGroup struct {
	ticker   string
	mappings []domain.FieldMapping
}

// groupByTicker collapses mappings into one group per ticker, preserving
// first-appearance order so the fetch sequence is stable.
func groupByTicker(mappings []domain.FieldMapping) []tickerGroup {
	index := make(map[string]int)
	var groups []tickerGroup
	for _, m := range mappings {
		i, ok := index[m.Ticker]
		if !ok {
			i = len(groups)
			index[m.Ticker] = i
			groups = append(groups, tickerGroup{ticker: m.Ticker})
		}
		groups[i].mappings = append(groups[i].mappings, m)
	}
	return groups
}

// fields returns the deduplicated field list for one fetch request.
func (g tickerGroup) fields() []string {
	seen := make(map[string]struct{}, len(g.mappings))
	var out []string
	for _, m := range g.mappings {
		if _, ok := seen[m.Field]; ok {
			continue
		}
		seen[m.Field] = struct{}{}
		out = append(out, m.Field)
	}
	return out
}
