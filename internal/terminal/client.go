package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"databridge/internal/infrastructure"
	"databridge/pkg/contracts/domain"
)

// Default gateway endpoint. The gateway process runs next to the terminal
// session on the workstation, so localhost is the common case.
const (
	DefaultHost = "localhost"
	DefaultPort = 8194
)

// PeriodicityDaily is the only periodicity the update pipeline requests.
const PeriodicityDaily = "DAILY"

// Config holds the gateway connection settings.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	// RequestsPerSecond caps outbound gateway calls. Zero disables limiting.
	RequestsPerSecond float64
}

// HistoricalOptions narrows a historical request. Dates are canonical
// YYYY-MM-DD; the gateway wire format wants them compact (YYYYMMDD).
type HistoricalOptions struct {
	StartDate   string
	EndDate     string
	Periodicity string
	Overrides   map[string]string
}

// Client is an HTTP client for the terminal data gateway. All methods return
// *FetchError on failure.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewClient creates a gateway client from cfg, filling defaults for zero
// values.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With(slog.String("component", "terminal_client")),
	}
}

// WithMetrics attaches gateway request counters. A nil argument leaves the
// client unmetered.
func (c *Client) WithMetrics(metrics *infrastructure.PipelineMetrics) *Client {
	c.metrics = metrics
	return c
}

type referenceRequest struct {
	Securities []string `json:"securities"`
	Fields     []string `json:"fields"`
}

type referenceResponse struct {
	Data  map[string]domain.FieldRow `json:"data"`
	Error string                     `json:"error,omitempty"`
}

// GetReferenceData fetches current field values for the given tickers in one
// request. Per-ticker failures come back as rows carrying an "error" field;
// only transport-level failures return an error.
func (c *Client) GetReferenceData(ctx context.Context, tickers, fields []string) (map[string]domain.FieldRow, error) {
	if len(tickers) == 0 {
		return map[string]domain.FieldRow{}, nil
	}

	var out referenceResponse
	err := c.post(ctx, "reference", "/reference", referenceRequest{
		Securities: tickers,
		Fields:     fields,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = map[string]domain.FieldRow{}
	}

	c.logger.DebugContext(ctx, "reference data fetched",
		slog.Int("tickers", len(tickers)),
		slog.Int("rows", len(out.Data)))
	return out.Data, nil
}

type historicalRequest struct {
	Security    string            `json:"security"`
	Fields      []string          `json:"fields"`
	StartDate   string            `json:"startDate,omitempty"`
	EndDate     string            `json:"endDate,omitempty"`
	Periodicity string            `json:"periodicity"`
	Overrides   map[string]string `json:"overrides,omitempty"`
}

type historicalResponse struct {
	Records []domain.FieldRow `json:"records"`
	Error   string            `json:"error,omitempty"`
}

// GetHistoricalData fetches a dated series for one ticker. Each record
// carries a "date" field plus the requested fields that had observations.
func (c *Client) GetHistoricalData(ctx context.Context, ticker string, fields []string, opts HistoricalOptions) ([]domain.FieldRow, error) {
	if opts.Periodicity == "" {
		opts.Periodicity = PeriodicityDaily
	}

	var out historicalResponse
	err := c.post(ctx, "historical", "/historical", historicalRequest{
		Security:    ticker,
		Fields:      fields,
		StartDate:   compactDate(opts.StartDate),
		EndDate:     compactDate(opts.EndDate),
		Periodicity: opts.Periodicity,
		Overrides:   opts.Overrides,
	}, &out)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Security = ticker
		}
		return nil, err
	}

	c.logger.DebugContext(ctx, "historical data fetched",
		slog.String("ticker", ticker),
		slog.Int("records", len(out.Records)))
	return out.Records, nil
}

// IsAvailable probes the gateway health endpoint. Any failure is reported as
// unavailable rather than an error.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	start := time.Now()
	err := c.doPost(ctx, op, path, body, out)
	infrastructure.RecordTerminalMetrics(ctx, c.metrics, op, time.Since(start), fetchKind(err))
	return err
}

func (c *Client) doPost(ctx context.Context, op, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &FetchError{Kind: KindTimeout, Op: op, Err: err}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &FetchError{Kind: KindDecode, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &FetchError{Kind: KindUnavailable, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindUnavailable
		if ctx.Err() != nil || isTimeout(err) {
			kind = KindTimeout
		}
		return &FetchError{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Kind: KindDecode, Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &FetchError{
			Kind: kindForStatus(resp.StatusCode),
			Op:   op,
			Err:  fmt.Errorf("gateway returned %d: %s", resp.StatusCode, errorBody(raw)),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &FetchError{Kind: KindDecode, Op: op, Err: err}
	}
	return nil
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return KindSecurity
	default:
		return KindUnavailable
	}
}

// errorBody pulls the gateway's error message out of a failed response so the
// collected error string is readable, falling back to a truncated raw body.
func errorBody(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func compactDate(iso string) string {
	return strings.ReplaceAll(iso, "-", "")
}

func fetchKind(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return string(KindUnavailable)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
