package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "databridge/internal/errors"
	"databridge/pkg/contracts/domain"
)

// restPath is the PostgREST route prefix the datastore exposes per table.
const restPath = "/rest/v1/"

// Config holds the datastore connection settings. Key is a service-role key
// sent both as the apikey header and the bearer token.
type Config struct {
	URL     string
	Key     string
	Timeout time.Duration
}

// Client writes and reads date-keyed rows through the datastore's PostgREST
// surface.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a datastore client. URL and Key are mandatory.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("datastore URL is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("datastore key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		key:     cfg.Key,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(slog.String("component", "datastore")),
	}, nil
}

// Upsert writes rows into table, merging on conflictKey so re-runs update in
// place instead of erroring on duplicates.
func (c *Client) Upsert(ctx context.Context, table string, rows []domain.DateRecord, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows for %s: %w", table, err)
	}

	endpoint := fmt.Sprintf("%s%s%s?on_conflict=%s", c.baseURL, restPath, url.PathEscape(table), url.QueryEscape(conflictKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build upsert request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewDatastoreError(fmt.Sprintf("upsert into %s failed", table), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return apperrors.NewDatastoreError(
			fmt.Sprintf("upsert into %s returned %d: %s", table, resp.StatusCode, readErrorBody(resp.Body)), nil).
			WithContext("table", table).
			WithContext("status", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "rows upserted",
		slog.String("table", table),
		slog.Int("rows", len(rows)))
	return nil
}

// SelectWhereNotNull returns the selectCol values of every row where
// notNullCol is populated. The ingestor uses it as the already-loaded guard,
// one column at a time.
func (c *Client) SelectWhereNotNull(ctx context.Context, table, selectCol, notNullCol string) ([]string, error) {
	query := url.Values{}
	query.Set("select", selectCol)
	query.Set(notNullCol, "not.is.null")

	endpoint := fmt.Sprintf("%s%s%s?%s", c.baseURL, restPath, url.PathEscape(table), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build select request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDatastoreError(fmt.Sprintf("select from %s failed", table), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewDatastoreError(
			fmt.Sprintf("select from %s returned %d: %s", table, resp.StatusCode, readErrorBody(resp.Body)), nil).
			WithContext("table", table).
			WithContext("status", resp.StatusCode)
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode select response from %s: %w", table, err)
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		switch v := row[selectCol].(type) {
		case string:
			values = append(values, v)
		case float64:
			values = append(values, strings.TrimSuffix(fmt.Sprintf("%v", v), ".0"))
		}
	}
	return values, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
}

func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
