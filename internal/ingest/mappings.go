package ingest

import (
	"fmt"
	"strings"
)

// FileType identifies a recognized export flavor. Each type carries its own
// column mapping and parse settings.
type FileType string

const (
	FileTypeMacro     FileType = "macro"
	FileTypeOilDemand FileType = "oil_demand"
	FileTypeDiffusion FileType = "diffusion"
)

// Mapping describes how one recognized export maps onto datastore columns.
// Pattern matching is case-insensitive substring on the filename, tried in
// the order of mappingOrder; unmatched filenames are rejected.
type Mapping struct {
	Type    FileType
	Pattern string
	// Columns maps the raw source header (lowercased, trimmed) to the
	// canonical datastore column.
	Columns map[string]string
	// Quoted selects the quote-aware parser used for exports whose cells
	// embed the delimiter inside double quotes.
	Quoted bool
	// SkipLines is the fixed count of metadata lines before the header row.
	SkipLines int
	// Delimiter forces a separator; zero means sniff from the first line.
	Delimiter rune
}

var macroColumns = map[string]string{
	"median % change in actual eps q over q 1 yr ago":     "estimates_median_pct_change_actual_eps_q_over_q_1yr_ago",
	"median % change in eps estimates q over q 1 yr ago":  "estimates_median_pct_change_eps_estimates_q_over_q_1yr_ago",
	"median % change in actual margins q over q 1 yr ago": "estimates_median_pct_change_actual_margins_q_over_q_1yr_ago",
}

var oilDemandColumns = map[string]string{
	"px_last": "oil_supply_demand_index",
}

var diffusionColumns = map[string]string{
	"fed liquidity index 1 day lag":                                                              "fed_liq_raw_value",
	"hf flow - financials sector mean position score (mkt cap weight)":                           "hf_flow_financials_sector_mean_position_score_mkt_cap",
	"hf flow - communication services sector mean position score (mkt cap weight)":               "hf_flow_communication_services_sector_mean_position_score_mkt_c",
	"hf flow - utilities sector mean position score (mkt cap weight)":                            "hf_flow_utilities_sector_mean_position_score_mkt_cap",
	"hf flow - real estate sector mean position score (mkt cap weight)":                          "hf_flow_real_estate_sector_mean_position_score_mkt_cap",
	"hf flow - health care sector mean position score (mkt cap weight)":                          "hf_flow_health_care_sector_mean_position_score_mkt_cap",
	"hf flow - consumer discretionary sector mean position score (mkt cap weight)":               "hf_flow_consumer_discretionary_sector_mean_position_score_mkt_c",
	"hf flow - consumer staples sector mean position score (mkt cap weight)":                     "hf_flow_consumer_staples_sector_mean_position_score_mkt_cap",
	"hf flow - energy sector mean position score (mkt cap weight)":                               "hf_flow_energy_sector_mean_position_score_mkt_cap",
	"hf flow - industrials sector mean position score (mkt cap weight)":                          "hf_flow_industrials_sector_mean_position_score_mkt_cap",
	"hf flow - materials sector mean position score (mkt cap weight)":                            "hf_flow_materials_sector_mean_position_score_mkt_cap",
	"hf flow - information technology sector mean position score (mkt cap weight)":               "hf_flow_information_technology_sector_mean_position_score_mkt_c",
	"hf flow - metals & mining industry mean position score (mkt cap weight)":                    "hf_flow_metals_mining_industry_mean_position_score_mkt_cap",
	"hf flow - semiconductor industry mean position score (mkt cap weight)":                      "hf_flow_semiconductor_industry_mean_position_score_mkt_cap",
	"hf flow - financials sector mean position score (equal weight)":                             "hf_flow_financials_sector_mean_position_score_equal",
	"hf flow - communication services sector mean position score (equal weight)":                 "hf_flow_communication_services_sector_mean_position_score_equal",
	"hf flow - utilities sector mean position score (equal weight)":                              "hf_flow_utilities_sector_mean_position_score_equal",
	"hf flow - real estate sector mean position score (equal weight)":                            "hf_flow_real_estate_sector_mean_position_score_equal",
	"hf flow - health care sector mean position score (equal weight)":                            "hf_flow_health_care_sector_mean_position_score_equal",
	"hf flow - consumer discretionary sector mean position score (equal weight)":                 "hf_flow_consumer_discretionary_sector_mean_position_score_equal",
	"hf flow - consumer staples sector mean position score (equal weight)":                       "hf_flow_consumer_staples_sector_mean_position_score_equal",
	"hf flow - energy sector mean position score (equal weight)":                                 "hf_flow_energy_sector_mean_position_score_equal",
	"hf flow - industrials sector mean position score (equal weight)":                            "hf_flow_industrials_sector_mean_position_score_equal",
	"hf flow - materials sector mean position score (equal weight)":                              "hf_flow_materials_sector_mean_position_score_equal",
	"hf flow - information technology sector mean position score (equal weight)":                 "hf_flow_information_technology_sector_mean_position_score_equal",
	"hf flow - metals & mining industry mean position score (equal weight)":                      "hf_flow_metals_mining_industry_mean_position_score_equal",
	"hf flow - semiconductors & semiconductors equipment industry position score (equal weight)": "hf_flow_semiconductors_equipment_industry_position_score_equal",
	"hf flow - mag7 ownership": "hf_flow_mag7",
}

// mappingOrder is the fixed priority in which filename patterns are tried.
var mappingOrder = []Mapping{
	{Type: FileTypeMacro, Pattern: "macrodataexport", Columns: macroColumns},
	{Type: FileTypeOilDemand, Pattern: "oildemand", Columns: oilDemandColumns, Quoted: true, SkipLines: 5, Delimiter: ','},
	{Type: FileTypeDiffusion, Pattern: "diffusionindexexport", Columns: diffusionColumns},
}

// DetectMapping resolves the mapping for an export filename. Unrecognized
// names are a configuration error for that file, not a silent skip.
func DetectMapping(filename string) (Mapping, error) {
	lower := strings.ToLower(filename)
	for _, m := range mappingOrder {
		if strings.Contains(lower, m.Pattern) {
			return m, nil
		}
	}
	return Mapping{}, fmt.Errorf("unknown file type: %s", filename)
}

// Recognized reports whether a filename matches any known export pattern.
func Recognized(filename string) bool {
	_, err := DetectMapping(filename)
	return err == nil
}
