package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "databridge/internal/errors"
	"databridge/internal/fundadmin"
	"databridge/internal/ingest"
	"databridge/internal/services"
	"databridge/internal/terminal"
	"databridge/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(testLogger(), false)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- quotes ---

type stubQuotes struct {
	prices     map[string]float64
	quotes     []domain.Quote
	historical map[string][]domain.FieldRow
	reference  map[string][]domain.FieldRow
	errs       []string
	err        error
}

func (s *stubQuotes) Prices(_ context.Context, tickers []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.prices, nil
}

func (s *stubQuotes) Quotes(context.Context, []string) ([]domain.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

func (s *stubQuotes) Historical(context.Context, []string, []string, string, string) (map[string][]domain.FieldRow, []string) {
	return s.historical, s.errs
}

func (s *stubQuotes) Reference(context.Context, []string, []string) (map[string][]domain.FieldRow, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.reference, s.errs, nil
}

func TestGetPricesReturnsPriceMap(t *testing.T) {
	stub := &stubQuotes{prices: map[string]float64{"SPY 450 C Equity": 3.15}}
	h := NewQuoteHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"tickers":["SPY 450 C Equity"]}`))
	rec := httptest.NewRecorder()
	h.PriceRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 3.15, body["SPY 450 C Equity"])
}

func TestGetPricesTerminalDownMapsTo503(t *testing.T) {
	stub := &stubQuotes{err: &terminal.FetchError{Kind: terminal.KindUnavailable, Op: "reference", Err: errors.New("refused")}}
	h := NewQuoteHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"tickers":["SPX Index"]}`))
	rec := httptest.NewRecorder()
	h.PriceRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeTerminalDown, body["type"])
}

func TestGetQuotesKeyedBySymbol(t *testing.T) {
	last := 172.4
	stub := &stubQuotes{quotes: []domain.Quote{{Symbol: "AAPL US Equity", LastPrice: &last}}}
	h := NewQuoteHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"symbols":["AAPL US Equity"]}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	quotes := body["quotes"].(map[string]any)
	entry := quotes["AAPL US Equity"].(map[string]any)
	assert.Equal(t, 172.4, entry["last_price"])
	// Sparse fields stay absent, not null.
	_, hasAsk := entry["ask"]
	assert.False(t, hasAsk)
}

func TestGetQuotesRequiresSymbols(t *testing.T) {
	h := NewQuoteHandler(&stubQuotes{}, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- series ---

func TestGetHistoricalKeyedByOriginalSymbol(t *testing.T) {
	stub := &stubQuotes{
		historical: map[string][]domain.FieldRow{
			"QBTL CN Equity": {{"date": domain.Str("2024-03-12"), "PX_LAST": domain.Num(30.1)}},
		},
		errs: []string{},
	}
	h := NewSeriesHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/historical", strings.NewReader(
		`{"symbols":["QBTL CN Equity"],"fields":["PX_LAST"],"start_date":"2024-03-01"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["historical_data"].(map[string]any)
	rows := data["QBTL CN Equity"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, 30.1, rows[0].(map[string]any)["PX_LAST"])
}

func TestSeriesRequiresSymbolsAndFields(t *testing.T) {
	h := NewSeriesHandler(&stubQuotes{}, testLogger(), testErrorHandler())

	for _, payload := range []string{`{"symbols":["SPX Index"]}`, `{"fields":["PX_LAST"]}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/reference", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
	}
}

// --- market update ---

type stubUpdater struct {
	result domain.UpdateResult
	from   string
	to     string
}

func (s *stubUpdater) Update(_ context.Context, fromDate, toDate string) (domain.UpdateResult, error) {
	s.from, s.to = fromDate, toDate
	return s.result, nil
}

func TestMarketUpdatePassesRange(t *testing.T) {
	stub := &stubUpdater{result: domain.UpdateResult{Success: true, Inserted: 12, Errors: []string{}}}
	h := NewMarketHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(
		`{"fromDate":"2024-01-01","toDate":"2024-03-13"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-01", stub.from)
	assert.Equal(t, "2024-03-13", stub.to)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(12), body["inserted"])
}

func TestMarketUpdateEmptyBodyRunsFullHistory(t *testing.T) {
	stub := &stubUpdater{result: domain.UpdateResult{Success: true, Errors: []string{}}}
	h := NewMarketHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, stub.from)
	assert.Empty(t, stub.to)
}

func TestMarketUpdateWriteFailureIs500(t *testing.T) {
	stub := &stubUpdater{result: domain.UpdateResult{Success: false, Errors: []string{"datastore write: conflict"}}}
	h := NewMarketHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

// --- calendar ---

type stubCalendar struct {
	result  domain.CalendarResult
	err     error
	tickers []string
}

func (s *stubCalendar) Run(_ context.Context, tickers []string) (domain.CalendarResult, error) {
	s.tickers = tickers
	return s.result, s.err
}

func TestCalendarReturnsEvents(t *testing.T) {
	stub := &stubCalendar{result: domain.CalendarResult{
		Events: []domain.CalendarEvent{{Ticker: "CPI YOY Index", ReleaseDate: "2024-03-14"}},
		Count:  1,
		Errors: []string{},
		From:   "2024-03-13",
		To:     "2025-03-13",
	}}
	h := NewCalendarHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tickers":["CPI YOY Index"]}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"CPI YOY Index"}, stub.tickers)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])
	events := body["calendar_data"].([]any)
	require.Len(t, events, 1)
}

func TestCalendarNoTickersConfiguredIs400(t *testing.T) {
	stub := &stubCalendar{err: errors.New("no tickers provided and none configured")}
	h := NewCalendarHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- exports ---

type stubExports struct {
	files   []ingest.ExportFile
	results []domain.IngestResult
	err     error
}

func (s *stubExports) List(context.Context) ([]ingest.ExportFile, error) {
	return s.files, s.err
}

func (s *stubExports) ProcessAll(context.Context) ([]domain.IngestResult, error) {
	return s.results, s.err
}

func (s *stubExports) Process(_ context.Context, name string) (domain.IngestResult, error) {
	for _, r := range s.results {
		if r.File == name {
			return r, nil
		}
	}
	return domain.IngestResult{}, errors.New("export not found")
}

func TestExportListReturnsFiles(t *testing.T) {
	stub := &stubExports{files: []ingest.ExportFile{
		{Name: "MacroDataExport_0312.txt", Size: 1024, ModTime: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), Type: ingest.FileTypeMacro},
	}}
	h := NewExportHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	files := body["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "MacroDataExport_0312.txt", files[0].(map[string]any)["name"])
}

func TestExportProcessAllAggregates(t *testing.T) {
	stub := &stubExports{results: []domain.IngestResult{
		{File: "MacroDataExport_0312.txt", Inserted: 40, Errors: []string{}},
		{File: "OilDemand_0312.csv", Inserted: 2, Errors: []string{"batch upsert failed"}},
	}}
	h := NewExportHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/process", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(42), body["inserted"])
	assert.Len(t, body["errors"].([]any), 1)
	assert.Len(t, body["files_processed"].([]any), 2)
}

func TestExportMissingDirectoryIs404(t *testing.T) {
	stub := &stubExports{err: errors.New("open /exports: no such file or directory")}
	h := NewExportHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportProcessUnknownNameIs404(t *testing.T) {
	h := NewExportHandler(&stubExports{}, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/process/missing.txt", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- funds ---

type stubFundAdmin struct {
	fundID   string
	valDate  string
	start    string
	end      string
	err      error
	response json.RawMessage
}

func (s *stubFundAdmin) GetPortfolio(_ context.Context, fundID, valuationDate string, _ fundadmin.PortfolioOptions) (json.RawMessage, error) {
	s.fundID, s.valDate = fundID, valuationDate
	return s.response, s.err
}

func (s *stubFundAdmin) GetPortfolioTrades(_ context.Context, fundParentID, start, end, _ string) (json.RawMessage, error) {
	s.fundID, s.start, s.end = fundParentID, start, end
	return s.response, s.err
}

func (s *stubFundAdmin) GetNAVSheet(_ context.Context, fundID, valuationDate string) (json.RawMessage, error) {
	s.fundID, s.valDate = fundID, valuationDate
	return s.response, s.err
}

func (s *stubFundAdmin) GetFundDetails(_ context.Context, fundID string) (json.RawMessage, error) {
	s.fundID = fundID
	return s.response, s.err
}

func TestFundPortfolioUsesDefaultFundAndToday(t *testing.T) {
	stub := &stubFundAdmin{response: json.RawMessage(`{"Positions":[]}`)}
	h := NewFundHandler(stub, "EHP-1", testLogger(), testErrorHandler())
	h.now = func() time.Time { return time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EHP-1", stub.fundID)
	assert.Equal(t, "2024-03-13", stub.valDate)
	assert.JSONEq(t, `{"Positions":[]}`, rec.Body.String())
}

func TestFundPortfolioQueryOverridesBody(t *testing.T) {
	stub := &stubFundAdmin{response: json.RawMessage(`{}`)}
	h := NewFundHandler(stub, "EHP-1", testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodPost, "/portfolio?fund_id=OTHER&date=2024-02-29",
		strings.NewReader(`{"fund_id":"BODY"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTHER", stub.fundID)
	assert.Equal(t, "2024-02-29", stub.valDate)
}

func TestFundPortfolioRequiresFundID(t *testing.T) {
	h := NewFundHandler(&stubFundAdmin{}, "", testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFundTradesRangeValidationIs400(t *testing.T) {
	stub := &stubFundAdmin{err: fundadmin.ErrBadRequest}
	h := NewFundHandler(stub, "EHP-1", testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/trades?start_date=2024-01-01&end_date=2024-03-01", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "TRADE_RANGE_EXCEEDED", body["error_code"])
}

func TestFundAdminFailureIs502(t *testing.T) {
	stub := &stubFundAdmin{err: errors.New("fund-admin GetPortfolio/ returned 500")}
	h := NewFundHandler(stub, "EHP-1", testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// --- positions ---

type stubPositions struct {
	report domain.PortfolioReport
	asOf   string
	err    error
}

func (s *stubPositions) Report(_ context.Context, asOf string) (domain.PortfolioReport, error) {
	s.asOf = asOf
	return s.report, s.err
}

func TestPositionsDefaultsToToday(t *testing.T) {
	nav := 125000000.0
	stub := &stubPositions{report: domain.PortfolioReport{FundNAV: &nav, NAVDate: "2024-03-13"}}
	h := NewPositionHandler(stub, testLogger(), testErrorHandler())
	h.now = func() time.Time { return time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-13", stub.asOf)
	body := decodeBody(t, rec)
	assert.Equal(t, nav, body["fund_nav"])
}

func TestPositionsSourceDownIs503(t *testing.T) {
	stub := &stubPositions{err: errors.New("dsn unreachable")}
	h := NewPositionHandler(stub, testLogger(), testErrorHandler())

	req := httptest.NewRequest(http.MethodGet, "/?date=2024-03-12", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "2024-03-12", stub.asOf)
}

// --- health ---

type stubHealth struct {
	status services.HealthStatus
}

func (s *stubHealth) Check(context.Context) services.HealthStatus { return s.status }

func (s *stubHealth) Liveness(context.Context) services.LivenessStatus {
	return services.LivenessStatus{Status: "alive"}
}

func TestHealthDownIs503(t *testing.T) {
	stub := &stubHealth{status: services.HealthStatus{Status: "unavailable", Service: "data-bridge"}}
	h := NewHealthHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unavailable", body["status"])
}

func TestHealthLive(t *testing.T) {
	stub := &stubHealth{status: services.HealthStatus{Status: "ok"}}
	h := NewHealthHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alive", body["status"])
}
