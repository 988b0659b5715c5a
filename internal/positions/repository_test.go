package positions

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func num(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestMapPositionDerivesExposurePct(t *testing.T) {
	nav := 10_000_000.0
	pos := mapPosition(positionRow{
		Strategy:      str("Event Driven"),
		CompanySymbol: str("ABC"),
		SecurityType:  str("Stock"),
		Ticker:        str("ABC CN Equity"),
		Quantity:      num(1500),
		Exposure:      num(250_000),
		PortfolioNAV:  num(nav),
	}, &nav)

	require.NotNil(t, pos.ExposurePctNAV)
	assert.InDelta(t, 2.5, *pos.ExposurePctNAV, 1e-9)
	assert.Equal(t, "ABC CN Equity", pos.TerminalTicker)
	require.NotNil(t, pos.Quantity)
	assert.Equal(t, 1500.0, *pos.Quantity)
	assert.Nil(t, pos.ClosePrice)
}

func TestMapPositionNoNAVNoPct(t *testing.T) {
	pos := mapPosition(positionRow{Exposure: num(250_000)}, nil)
	assert.Nil(t, pos.ExposurePctNAV)

	zero := 0.0
	pos = mapPosition(positionRow{Exposure: num(250_000)}, &zero)
	assert.Nil(t, pos.ExposurePctNAV)
}

func TestMapPositionOptionTickerFallback(t *testing.T) {
	pos := mapPosition(positionRow{
		CompanySymbol: str("ABC 240621C00050000"),
		SecurityType:  str("EquityOption"),
	}, nil)
	assert.Equal(t, "ABC 240621C00050000", pos.TerminalTicker)

	// Stocks never fall back; a missing ticker stays missing.
	pos = mapPosition(positionRow{
		CompanySymbol: str("ABC"),
		SecurityType:  str("Stock"),
	}, nil)
	assert.Empty(t, pos.TerminalTicker)
}

func TestMapPositionTrimsStrings(t *testing.T) {
	pos := mapPosition(positionRow{Sector: str("  Energy  ")}, nil)
	assert.Equal(t, "Energy", pos.Sector)
}

func TestCompactDate(t *testing.T) {
	assert.Equal(t, "20240328", compactDate("2024-03-28"))
	assert.Equal(t, "20240328", compactDate("2024/03/28"))
	assert.Equal(t, "20240328", compactDate("20240328"))
	assert.Equal(t, "20240328", compactDate("2024-03-28T00:00:00"))
}

func TestIsoDate(t *testing.T) {
	assert.Equal(t, "2024-03-28", isoDate("20240328"))
	assert.Equal(t, "garbage", isoDate("garbage"))
}

func TestNewRepositoryValidation(t *testing.T) {
	_, err := NewRepository(Config{Portfolio: "Main Fund"}, nil)
	require.Error(t, err)

	_, err = NewRepository(Config{DSN: "DSN=VIEWER"}, nil)
	require.Error(t, err)
}
