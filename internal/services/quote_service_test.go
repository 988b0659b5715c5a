package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"databridge/internal/terminal"
	"databridge/pkg/contracts/domain"
)

type fakeReference struct {
	rows    map[string]domain.FieldRow
	err     error
	tickers []string
	fields  []string
}

func (f *fakeReference) GetReferenceData(_ context.Context, tickers, fields []string) (map[string]domain.FieldRow, error) {
	f.tickers = tickers
	f.fields = fields
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

// 14:00 and 20:00 Eastern on a Wednesday, inside and outside the session.
func quoteClock(hour int) func() time.Time {
	return func() time.Time {
		loc, _ := time.LoadLocation("America/New_York")
		return time.Date(2024, 3, 13, hour, 0, 0, 0, loc)
	}
}

func newTestQuoteService(ref *fakeReference, hist *fakeHistorical, hour int) *QuoteService {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewQuoteService(ref, hist, nil, logger)
	svc.now = quoteClock(hour)
	return svc
}

func TestPricesPrefersMidDuringSession(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"SPY 450 C Equity": {
			"PX_LAST":           domain.Num(3.10),
			"PX_MID":            domain.Num(3.15),
			"PX_OFFICIAL_CLOSE": domain.Num(3.05),
		},
	}}
	svc := newTestQuoteService(ref, nil, 14)

	prices, err := svc.Prices(context.Background(), []string{"SPY 450 C Equity"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"SPY 450 C Equity": 3.15}, prices)
}

func TestPricesPrefersOfficialCloseAfterHours(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"SPY 450 C Equity": {
			"PX_LAST":           domain.Num(3.10),
			"PX_MID":            domain.Num(3.15),
			"PX_OFFICIAL_CLOSE": domain.Num(3.05),
		},
	}}
	svc := newTestQuoteService(ref, nil, 20)

	prices, err := svc.Prices(context.Background(), []string{"SPY 450 C Equity"})
	require.NoError(t, err)

	assert.Equal(t, 3.05, prices["SPY 450 C Equity"])
}

func TestPricesFallsBackToLast(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"XYZ Equity": {"PX_LAST": domain.Num(9.99)},
	}}
	svc := newTestQuoteService(ref, nil, 14)

	prices, err := svc.Prices(context.Background(), []string{"XYZ Equity"})
	require.NoError(t, err)

	assert.Equal(t, 9.99, prices["XYZ Equity"])
}

func TestPricesSkipsErrorAndUnpriceableRows(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"BAD Equity":   {"error": domain.Str("Unknown/Invalid Security")},
		"EMPTY Equity": {},
		"OK Equity":    {"PX_LAST": domain.Num(1.5)},
	}}
	svc := newTestQuoteService(ref, nil, 14)

	prices, err := svc.Prices(context.Background(), []string{"BAD Equity", "EMPTY Equity", "OK Equity"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"OK Equity": 1.5}, prices)
}

func TestPricesEmptyTickersSkipsFetch(t *testing.T) {
	ref := &fakeReference{err: errors.New("should not be called")}
	svc := newTestQuoteService(ref, nil, 14)

	prices, err := svc.Prices(context.Background(), []string{"", "   "})
	require.NoError(t, err)

	assert.Empty(t, prices)
	assert.Nil(t, ref.tickers)
}

func TestQuotesBuildsSparseSurface(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"AAPL US Equity": {
			"PX_LAST": domain.Num(172.4),
			"PX_BID":  domain.Num(172.3),
			"CRNCY":   domain.Str("USD"),
		},
		"BAD Equity": {"error": domain.Str("rejected")},
	}}
	svc := newTestQuoteService(ref, nil, 14)

	result, err := svc.Quotes(context.Background(), []string{"AAPL US Equity", "BAD Equity"})
	require.NoError(t, err)

	require.Len(t, result, 1)
	q := result[0]
	assert.Equal(t, "AAPL US Equity", q.Symbol)
	require.NotNil(t, q.LastPrice)
	assert.Equal(t, 172.4, *q.LastPrice)
	require.NotNil(t, q.Bid)
	assert.Equal(t, 172.3, *q.Bid)
	assert.Nil(t, q.Ask)
	assert.Equal(t, "USD", q.Currency)
}

func TestHistoricalTriesCanadianVariants(t *testing.T) {
	hist := &fakeHistorical{rows: map[string][]domain.FieldRow{
		"QBTL:CN": {histRow("2024-03-12", map[string]float64{"PX_LAST": 30.1})},
	}}
	svc := newTestQuoteService(nil, hist, 14)

	result, errs := svc.Historical(context.Background(), []string{"QBTL CN EQUITY"}, []string{"PX_LAST"}, "2024-03-01", "2024-03-12")

	assert.Empty(t, errs)
	records := result["QBTL CN EQUITY"]
	require.Len(t, records, 1)
	f, ok := records[0].Get("PX_LAST").Float()
	require.True(t, ok)
	assert.Equal(t, 30.1, f)
}

func TestHistoricalReportsLastErrorWhenAllVariantsFail(t *testing.T) {
	hist := &fakeHistorical{errs: map[string]error{
		"QBTL CN Equity": errors.New("no data"),
		"QBTL:CN":        errors.New("no data"),
		"QBTL:CT":        errors.New("unknown security"),
	}}
	svc := newTestQuoteService(nil, hist, 14)

	result, errs := svc.Historical(context.Background(), []string{"QBTL CN Equity"}, []string{"PX_LAST"}, "", "")

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "QBTL CN Equity")
	assert.Contains(t, errs[0], "unknown security")
	assert.Empty(t, result["QBTL CN Equity"])
}

func TestReferenceStampsDateAndCollectsErrors(t *testing.T) {
	ref := &fakeReference{rows: map[string]domain.FieldRow{
		"SPX Index": {"PX_LAST": domain.Num(5150.0)},
		"BAD Index": {"error": domain.Str("rejected")},
	}}
	svc := newTestQuoteService(ref, nil, 14)

	result, errs, err := svc.Reference(context.Background(), []string{"SPX Index", "BAD Index"}, []string{"PX_LAST"})
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "BAD Index")

	rows := result["SPX Index"]
	require.Len(t, rows, 1)
	date, ok := rows[0].Get("date").Text()
	require.True(t, ok)
	assert.Equal(t, "2024-03-13", date)
}

func TestReferencePropagatesTransportError(t *testing.T) {
	ref := &fakeReference{err: &terminal.FetchError{Kind: terminal.KindUnavailable, Op: "reference", Err: errors.New("refused")}}
	svc := newTestQuoteService(ref, nil, 14)

	_, _, err := svc.Reference(context.Background(), []string{"SPX Index"}, []string{"PX_LAST"})

	assert.True(t, terminal.IsUnavailable(err))
}
