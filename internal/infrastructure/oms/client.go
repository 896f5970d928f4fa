// Package oms is the HTTP client for the order management system's REST
// API. Authentication is a username/password exchange for a bearer
// token; order reads are retried, nothing else is.
package oms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the OMS API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client implements integration.OMSGateway against the OMS REST API.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates an OMS client. The token is fetched lazily on the
// first order read, not at construction.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// FetchOrder retrieves one order by its OMS id. Transient upstream
// failures (429 and 5xx) are retried with exponential backoff; any
// other non-200 response means the order does not exist there.
func (c *Client) FetchOrder(ctx context.Context, omsOrderID string) (*integration.OMSOrder, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var body []byte
	operation := func() error {
		var opErr error
		body, opErr = c.getOrder(ctx, token, omsOrderID)
		return opErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOMSInvalidResponse, err)
	}

	order := &integration.OMSOrder{
		Tax:        resp.TotalInfo.Tax,
		GrandTotal: resp.TotalInfo.GrandTotal,
		Shipping:   resp.TotalInfo.ShippingTotal,
	}
	for _, item := range resp.OrderItems {
		order.Items = append(order.Items, integration.OMSOrderItem{
			ItemID:    item.ProductIDOriginal,
			LineTotal: item.LineTotal,
			Quantity:  item.Qty,
		})
	}
	return order, nil
}

// getOrder performs one GET. Retryable failures come back as plain
// errors; everything else is wrapped in backoff.Permanent.
func (c *Client) getOrder(ctx context.Context, token, omsOrderID string) ([]byte, error) {
	url := c.baseURL() + "Orders/" + omsOrderID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("oms: failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures are retryable
		return nil, fmt.Errorf("%w: %v", integration.ErrOMSUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("oms: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case isRetryable(resp.StatusCode):
		c.logger.Warn("Retryable OMS response",
			zap.String("oms_order_id", omsOrderID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrOMSUnavailable, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: HTTP %d", integration.ErrOMSOrderNotFound, resp.StatusCode))
	}
}

// ensureToken authenticates on first use and caches the bearer token
// for the lifetime of the client.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"Username": c.config.Username,
		"Password": c.config.Password,
	})
	if err != nil {
		return "", fmt.Errorf("oms: failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("oms: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", integration.ErrOMSUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("oms: failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned HTTP %d", integration.ErrOMSUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", integration.ErrOMSInvalidResponse)
	}

	c.token = tr.AccessToken
	return c.token, nil
}

func (c *Client) baseURL() string {
	if strings.HasSuffix(c.config.BaseURL, "/") {
		return c.config.BaseURL
	}
	return c.config.BaseURL + "/"
}

func isRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Ensure Client implements the gateway interface
var _ integration.OMSGateway = (*Client)(nil)
