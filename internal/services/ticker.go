package services

import "strings"

// NormalizeTicker fixes the security-class suffix casing the terminal
// rejects: "ABC US EQUITY" becomes "ABC US Equity". Other tickers pass
// through unchanged.
func NormalizeTicker(ticker string) string {
	t := strings.TrimSpace(ticker)
	if strings.HasSuffix(t, " EQUITY") {
		return strings.TrimSuffix(t, " EQUITY") + " Equity"
	}
	return t
}

// TickerVariants returns the alternate symbologies to try when the primary
// form returns no data. Canadian equities listed as "QBTL CN Equity" are also
// quoted as "QBTL:CN" and "QBTL:CT" depending on the terminal's exchange
// routing.
func TickerVariants(ticker string) []string {
	t := strings.TrimSpace(ticker)
	variants := []string{t}
	if strings.Contains(t, " CN ") && strings.Contains(strings.ToUpper(t), "EQUITY") {
		base := strings.TrimSpace(strings.SplitN(t, " CN ", 2)[0])
		variants = append(variants, base+":CN", base+":CT")
	}
	return variants
}
