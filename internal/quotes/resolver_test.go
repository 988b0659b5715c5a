package quotes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"databridge/pkg/contracts/domain"
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// inSessionTime is a Wednesday at 11:00 Eastern.
func inSessionTime(t *testing.T) time.Time {
	return time.Date(2024, 3, 13, 11, 0, 0, 0, eastern(t))
}

// outOfSessionTime is the same Wednesday at 18:30 Eastern.
func outOfSessionTime(t *testing.T) time.Time {
	return time.Date(2024, 3, 13, 18, 30, 0, 0, eastern(t))
}

func fullRow() domain.FieldRow {
	return domain.FieldRow{
		FieldMid:           domain.Num(10),
		FieldOfficialClose: domain.Num(11),
		FieldLast:          domain.Num(12),
	}
}

func TestInSessionBoundaries(t *testing.T) {
	loc := eastern(t)
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2024, 3, 13, 9, 29, 0, 0, loc), false},
		{"at open", time.Date(2024, 3, 13, 9, 30, 0, 0, loc), true},
		{"midday", time.Date(2024, 3, 13, 12, 0, 0, 0, loc), true},
		{"at close", time.Date(2024, 3, 13, 16, 0, 0, 0, loc), true},
		{"second after close", time.Date(2024, 3, 13, 16, 0, 1, 0, loc), false},
		{"after close", time.Date(2024, 3, 13, 16, 1, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InSession(tt.at))
		})
	}
}

func TestInSessionConvertsFromOtherZones(t *testing.T) {
	// 15:00 UTC in March (EDT) is 11:00 Eastern: in session.
	assert.True(t, InSession(time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)))
	// 15:00 UTC in January (EST) is 10:00 Eastern: also in session.
	assert.True(t, InSession(time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)))
	// 22:00 UTC in January is 17:00 Eastern: closed.
	assert.False(t, InSession(time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)))
}

func TestResolvePriceSelectionOrder(t *testing.T) {
	row := fullRow()

	got, ok := ResolvePrice(row, inSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, 10.0, got, "mid preferred in session")

	got, ok = ResolvePrice(row, outOfSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, 11.0, got, "official close preferred out of session")
}

func TestResolvePriceFallbackToLast(t *testing.T) {
	row := domain.FieldRow{FieldLast: domain.Num(12)}

	got, ok := ResolvePrice(row, inSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, 12.0, got)

	got, ok = ResolvePrice(row, outOfSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, 12.0, got)
}

func TestResolvePriceOmissions(t *testing.T) {
	_, ok := ResolvePrice(domain.FieldRow{}, inSessionTime(t))
	assert.False(t, ok, "no usable field yields no price")

	errRow := domain.FieldRow{"error": domain.Str("bad security"), FieldLast: domain.Num(12)}
	_, ok = ResolvePrice(errRow, inSessionTime(t))
	assert.False(t, ok, "error rows contribute nothing")
}

func TestBuildQuoteSparse(t *testing.T) {
	row := domain.FieldRow{
		FieldLast:     domain.Num(101.5),
		FieldBid:      domain.Num(101.4),
		FieldCurrency: domain.Str("USD"),
	}
	q, ok := BuildQuote("SPY US Equity", row, outOfSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, "SPY US Equity", q.Symbol)
	require.NotNil(t, q.LastPrice)
	assert.Equal(t, 101.5, *q.LastPrice)
	assert.Equal(t, "USD", q.Currency)
	assert.Nil(t, q.Ask)
	assert.Nil(t, q.Volume)
}

func TestBuildQuoteBidFallbackAndOmission(t *testing.T) {
	q, ok := BuildQuote("X", domain.FieldRow{FieldBid: domain.Num(5)}, inSessionTime(t))
	require.True(t, ok)
	assert.Equal(t, 5.0, *q.LastPrice)

	_, ok = BuildQuote("Y", domain.FieldRow{FieldName: domain.Str("no prices")}, inSessionTime(t))
	assert.False(t, ok)

	_, ok = BuildQuote("Z", domain.FieldRow{"error": domain.Str("boom")}, inSessionTime(t))
	assert.False(t, ok)
}
