package fundadmin

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
	"sync"
	"time"
)

// DefaultBaseURL is the fund administrator's REST endpoint (API v2.03).
const DefaultBaseURL = "https://api.sgggfsi.com/api/v1"

const (
	// authKeyLifetime is how long a login token stays valid server-side.
	authKeyLifetime = time.Hour
	// authRefreshBuffer re-logins this long before the token actually expires
	// so in-flight requests never carry a stale key.
	authRefreshBuffer = 5 * time.Minute
)

// maxTradeRangeDays is the administrator's hard cap on a trade query range.
const maxTradeRangeDays = 31

// ErrBadRequest marks request-shape failures caught before the wire: bad
// date types, malformed dates, and over-long trade ranges.
var ErrBadRequest = errors.New("invalid fund-admin request")

// IsValidationError reports whether err is a request-shape failure rather
// than an administrator-side one.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// Date type codes accepted by GetPortfolioTrades.
const (
	DateTypeValuation  = "V"
	DateTypeSettlement = "S"
	DateTypeTrade      = "T"
	DateTypeProcess    = "P"
)

var dateTypeNames = map[string]string{
	DateTypeValuation:  "ValuationDate",
	DateTypeSettlement: "SettlementDate",
	DateTypeTrade:      "TradeDate",
	DateTypeProcess:    "ProcessDate",
}

// Config holds the fund-admin connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client calls the fund administrator's API, transparently logging in and
// caching the auth key across calls. Safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	authKey   string
	expiresAt time.Time
}

// NewClient creates a fund-admin client. Username and Password are mandatory.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("fund-admin username and password are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With(slog.String("component", "fundadmin_client")),
		now:      time.Now,
	}, nil
}

// PortfolioOptions narrows a GetPortfolio request. The zero value matches the
// administrator's defaults: flat positions included, not-priced excluded.
type PortfolioOptions struct {
	ReferenceDate             string
	ExcludeFlatPositions      bool
	IncludeNotPricedPositions bool
}

// GetPortfolio returns the finalized portfolio for a fund as of
// valuationDate (YYYY-MM-DD). The response passes through undecoded.
func (c *Client) GetPortfolio(ctx context.Context, fundID, valuationDate string, opts PortfolioOptions) (json.RawMessage, error) {
	payload := map[string]any{
		"FundID":                    fundID,
		"ValuationDate":             valuationDate,
		"ExcludeFlatPositions":      opts.ExcludeFlatPositions,
		"ExcludeNotPricedPositions": !opts.IncludeNotPricedPositions,
	}
	if opts.ReferenceDate != "" {
		payload["ReferenceDate"] = opts.ReferenceDate
	}
	return c.post(ctx, "GetPortfolio/", payload)
}

// GetPortfolioTrades returns trade details for a fund family. dateType is one
// of the DateType codes or a full name; start and end (YYYY-MM-DD) may not
// span more than 31 days.
func (c *Client) GetPortfolioTrades(ctx context.Context, fundParentID, start, end, dateType string) (json.RawMessage, error) {
	name, err := resolveDateType(dateType)
	if err != nil {
		return nil, err
	}
	if err := validateTradeRange(start, end); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"FundParentID": fundParentID,
		"DateType":     name,
	}
	if start != "" {
		payload["StartDate"] = start
	}
	if end != "" {
		payload["EndDate"] = end
	}
	return c.post(ctx, "GetPortfolioTrades/", payload)
}

// GetNAVSheet returns the NAV sheet for a fund as of valuationDate.
func (c *Client) GetNAVSheet(ctx context.Context, fundID, valuationDate string) (json.RawMessage, error) {
	return c.post(ctx, "GetNAVSheet/", map[string]any{
		"FundID":        fundID,
		"ValuationDate": valuationDate,
	})
}

// GetFundDetails returns the static details for a fund.
func (c *Client) GetFundDetails(ctx context.Context, fundID string) (json.RawMessage, error) {
	return c.post(ctx, "GetFundDetails/", map[string]any{"FundID": fundID})
}

func resolveDateType(dateType string) (string, error) {
	if dateType == "" {
		return dateTypeNames[DateTypeValuation], nil
	}
	if name, ok := dateTypeNames[strings.ToUpper(dateType)]; ok {
		return name, nil
	}
	for _, name := range dateTypeNames {
		if strings.EqualFold(name, dateType) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: date type %q, want V, S, T or P", ErrBadRequest, dateType)
}

func validateTradeRange(start, end string) error {
	if start == "" || end == "" {
		return nil
	}
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return fmt.Errorf("%w: start date %q: %v", ErrBadRequest, start, err)
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return fmt.Errorf("%w: end date %q: %v", ErrBadRequest, end, err)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: end date %s precedes start date %s", ErrBadRequest, end, start)
	}
	if to.Sub(from) > maxTradeRangeDays*24*time.Hour {
		return fmt.Errorf("%w: range %s..%s exceeds %d days", ErrBadRequest, start, end, maxTradeRangeDays)
	}
	return nil
}

// ensureAuth returns a usable auth key, logging in when the cached one is
// missing or inside the refresh buffer.
func (c *Client) ensureAuth(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.authKey != "" && now.Before(c.expiresAt.Add(-authRefreshBuffer)) {
		return c.authKey, nil
	}

	key, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.authKey = key
	c.expiresAt = now.Add(authKeyLifetime)
	c.logger.InfoContext(ctx, "fund-admin login succeeded",
		slog.Time("token_expires_at", c.expiresAt))
	return key, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"Username": c.username,
		"Password": c.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login/", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fund-admin login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fund-admin login returned %d", resp.StatusCode)
	}

	// The administrator has shipped both spellings of the key field.
	var body struct {
		AuthKey    string `json:"AuthKey"`
		AuthKeyAlt string `json:"Authkey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	key := body.AuthKey
	if key == "" {
		key = body.AuthKeyAlt
	}
	if key == "" {
		return "", fmt.Errorf("login response missing AuthKey")
	}
	return key, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (json.RawMessage, error) {
	auth, err := c.ensureAuth(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+strings.TrimPrefix(path, "/"), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fund-admin %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fund-admin %s read failed: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fund-admin %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body[:min(len(body), 200)])))
	}
	return json.RawMessage(body), nil
}
