// Package postgrest provides a ledger.Source backed by a PostgREST-compatible
// HTTP API, the hosted database interface of the back office.
package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"resell-reports/internal/config"
	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// Client is a ledger client for a PostgREST endpoint.
type Client struct {
	endpoint   string             // PostgREST base URL (e.g. https://xyz.supabase.co/rest/v1)
	apiKey     string             // API key sent as apikey and bearer token
	timeout    time.Duration      // Request timeout
	retry      config.RetryConfig // Retry configuration
	httpClient *resty.Client      // HTTP client
	logger     zerolog.Logger     // Logger
}

// NewClient creates a new PostgREST ledger client.
func NewClient(cfg *config.PostgRESTConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// No retries unless explicitly configured
	retry := config.RetryConfig{}
	if retryCfg != nil {
		retry = *retryCfg
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8).
		AddRetryCondition(retryCondition)

	if cfg.APIKey != "" {
		httpClient.
			SetHeader("apikey", cfg.APIKey).
			SetAuthToken(cfg.APIKey)
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "postgrest-client").Logger(),
	}
}

// retryCondition retries only on transport errors and 5xx responses.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp != nil && resp.StatusCode() >= 500 {
		return true
	}
	return false
}

// Select implements ledger.Source.
func (c *Client) Select(ctx context.Context, q ledger.Query) (*ledger.Page, error) {
	params := buildParams(q)

	c.logger.Debug().
		Str("table", q.Table).
		Str("query", params.Encode()).
		Msg("querying ledger")

	var records []ledger.Record
	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(&records).
		SetQueryParamsFromValues(params)
	if q.CountExact {
		req.SetHeader("Prefer", "count=exact")
	}

	resp, err := req.Get("/" + url.PathEscape(q.Table))
	if err != nil {
		c.logger.Error().Err(err).Str("table", q.Table).Msg("ledger request failed")
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUpstreamQuery, q.Table, err)
	}

	// 206 is returned for ranged responses
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusPartialContent {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("table", q.Table).
			Str("body", string(resp.Body())).
			Msg("ledger API returned non-200 status")
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			model.ErrUpstreamQuery, q.Table, resp.StatusCode(), string(resp.Body()))
	}

	total := -1
	if q.CountExact {
		total = parseContentRangeTotal(resp.Header().Get("Content-Range"))
	}

	c.logger.Debug().Int("count", len(records)).Int("total", total).Msg("ledger page fetched")
	return &ledger.Page{Records: records, Total: total}, nil
}

// buildParams translates a ledger query into PostgREST query parameters.
func buildParams(q ledger.Query) url.Values {
	params := url.Values{}
	params.Set("select", "*")

	for _, p := range q.Predicates {
		switch p.Op {
		case ledger.OpEq:
			params.Add(p.Field, "eq."+p.Value)
		case ledger.OpGte:
			params.Add(p.Field, "gte."+p.Value)
		case ledger.OpLte:
			params.Add(p.Field, "lte."+p.Value)
		case ledger.OpIsNull:
			params.Add(p.Field, "is.null")
		}
	}

	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		// id breaks ties so pages never overlap
		params.Set("order", fmt.Sprintf("%s.%s,%s.asc", q.OrderBy, dir, ledger.FieldID))
	}

	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	return params
}

// parseContentRangeTotal extracts the total from "0-24/3573"; unknown is -1.
func parseContentRangeTotal(header string) int {
	i := strings.LastIndex(header, "/")
	if i < 0 {
		return -1
	}
	total, err := strconv.Atoi(header[i+1:])
	if err != nil {
		return -1
	}
	return total
}
