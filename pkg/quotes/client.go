package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

const (
	defaultTimeout              = 5 * time.Second
	responseBodyReadLimit int64 = 1024
)

// kilogramsPerTroyOunce converts a USD-per-troy-ounce quote to USD per kilogram.
var kilogramsPerTroyOunce = decimal.NewFromFloat(32.1507466)

var errBaseURLRequired = errors.New("quote api url is required")

// Client fetches spot market prices from the external quote source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithAPIKey sets the quote source API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// NewClient builds a quote client for the configured endpoint.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client, nil
}

// PricePerKg fetches the current quote for the commodity and converts it from
// USD per troy ounce to USD per kilogram.
func (c *Client) PricePerKg(ctx context.Context, commodity string) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "quote client not configured")
	}
	trimmed := strings.TrimSpace(commodity)
	if trimmed == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "commodity is required")
	}

	reqURL := fmt.Sprintf("%s?commodity=%s", c.baseURL, url.QueryEscape(strings.ToLower(trimmed)))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build quote request")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute quote request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "quote request failed")
	}

	var apiResp struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode quote response")
	}
	if apiResp.Price <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "quote source returned a non-positive price")
	}

	perOunce := decimal.NewFromFloat(apiResp.Price)
	return perOunce.Mul(kilogramsPerTroyOunce), nil
}
