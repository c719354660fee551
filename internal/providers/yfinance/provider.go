// Package yfinance implements the Yahoo Finance data provider.
// It wraps Yahoo Finance's public APIs (v1 search, v8 chart, v10
// quoteSummary, fundamentals-timeseries and the RSS headline feed) behind
// provider.Provider.
//
// Yahoo Finance is a free, no-API-key provider. The quoteSummary endpoint
// needs a session cookie plus a crumb token, fetched once per Client.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	_ "time/tzdata" // exchange time zones on hosts without a tz database

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"github.com/seenimoa/yfbridge/internal/config"
	"github.com/seenimoa/yfbridge/internal/infra"
	"github.com/seenimoa/yfbridge/internal/provider"
)

// SourceName is reported in the envelope of every successful response.
const SourceName = "yfinance/yahoo"

// Client implements provider.Provider for Yahoo Finance.
type Client struct {
	http   *resty.Client
	cfg    config.YahooConfig
	logger *slog.Logger

	crumbMu sync.Mutex
	crumb   string
}

var _ provider.Provider = (*Client)(nil)

// New creates a Yahoo Finance client from the Yahoo section of the config.
func New(cfg config.YahooConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http: infra.NewHTTPClient(infra.HTTPOptions{
			Timeout:   cfg.Timeout(),
			UserAgent: cfg.UserAgent,
			Logger:    logger,
		}),
		cfg:    cfg,
		logger: logger.With("provider", "yfinance"),
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return SourceName }

// Close releases the underlying HTTP client.
func (c *Client) Close() error { return c.http.Close() }

// --- Shared helpers ---

// get performs a GET request and returns the body of a 2xx response.
// Anything else becomes a *provider.ErrHTTP.
func (c *Client) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	c.logger.Debug("GET", "url", url, "params", params)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	body := resp.Bytes()
	if !resp.IsSuccess() {
		return nil, &provider.ErrHTTP{
			StatusCode: resp.StatusCode(),
			Status:     http.StatusText(resp.StatusCode()),
			Body:       errorDetail(resp.Header().Get("Content-Type"), body),
		}
	}
	return body, nil
}

// fetchJSON performs a GET request and decodes the response into dest.
func (c *Client) fetchJSON(ctx context.Context, url string, params map[string]string, dest any) error {
	body, err := c.get(ctx, url, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

const maxErrorBody = 200

// errorDetail extracts a readable message from an error response: the
// Yahoo error description for JSON, the page title for HTML, else the
// (truncated) body text.
func errorDetail(contentType string, body []byte) string {
	if strings.Contains(contentType, "html") || looksLikeHTML(body) {
		if title := htmlTitle(body); title != "" {
			return title
		}
	}

	var fe yfFinanceError
	if json.Unmarshal(body, &fe) == nil {
		if e := fe.first(); e != nil {
			return e.Description
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 64)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// htmlTitle returns the trimmed <title> of an HTML document, or "".
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// requireSymbol validates the symbol parameter the way every symbol-based
// call needs it.
func requireSymbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if err := provider.ValidateParams(provider.QueryParams{provider.ParamSymbol: symbol}, provider.ParamSymbol); err != nil {
		return "", err
	}
	return strings.ToUpper(symbol), nil
}
