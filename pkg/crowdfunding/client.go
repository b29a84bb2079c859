package crowdfunding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("crowdfunding api url is required")

// Client talks to the external crowdfunding platform used for campaign export.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// NewClient builds a crowdfunding client for the configured campaign endpoint.
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

// CampaignPayload is the field mapping the platform expects for a new campaign.
type CampaignPayload struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Icon            string  `json:"icon"`
	Risk            string  `json:"risk"`
	TargetAPY       float64 `json:"targetApy"`
	Duration        int     `json:"duration"`
	MinInvestment   float64 `json:"minInvestment"`
	AmountRequired  float64 `json:"amountRequired"`
	Description     string  `json:"description"`
	Origin          string  `json:"origin"`
	Destination     string  `json:"destination"`
	TransportMethod string  `json:"transportMethod"`
	MetalForm       string  `json:"metalForm"`
	PurityPercent   float64 `json:"purityPercent"`
	ShipmentID      string  `json:"shipmentId"`
}

// DeliveryPayload notifies the platform that a shipment arrived.
type DeliveryPayload struct {
	ShipmentID string `json:"shipmentId"`
	Status     string `json:"status"`
}

// CreateCampaign POSTs the payload and returns the remote campaign identifier.
func (c *Client) CreateCampaign(ctx context.Context, payload json.RawMessage) (string, error) {
	return c.send(ctx, http.MethodPost, payload)
}

// PatchCampaign PATCHes the payload (delivery updates) and returns the remote
// identifier when the platform echoes one.
func (c *Client) PatchCampaign(ctx context.Context, payload json.RawMessage) (string, error) {
	return c.send(ctx, http.MethodPatch, payload)
}

func (c *Client) send(ctx context.Context, method string, payload json.RawMessage) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "crowdfunding client not configured")
	}
	if len(payload) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "campaign payload is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build campaign request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute campaign request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "campaign request failed")
	}

	var apiResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		// Some PATCH responses carry no body; treat an empty body as success.
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode campaign response")
	}

	return apiResp.Data.ID, nil
}
