// Package accounting is the HTTP client for the accounting system's
// REST API. Lookups distinguish "not there" from "could not check";
// mutations are attempted exactly once, since retrying a create that
// may have landed risks duplicate invoices.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the accounting API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client implements integration.AccountingGateway against the
// accounting REST API.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an accounting client.
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

// FindInvoiceByDocNumber looks up an invoice by its document number.
// Returns ErrInvoiceNotFound when the lookup succeeded but matched
// nothing, ErrAccountingUnavailable when the lookup itself failed.
func (c *Client) FindInvoiceByDocNumber(ctx context.Context, docNumber string) (*integration.Invoice, error) {
	endpoint := c.baseURL() + "invoices?docNumber=" + url.QueryEscape(docNumber)
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: doc number %s", integration.ErrInvoiceNotFound, docNumber)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: invoice lookup returned HTTP %d", integration.ErrAccountingUnavailable, status)
	}

	var resp invoiceQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: invoice lookup: %v", integration.ErrAccountingUnavailable, err)
	}
	if len(resp.Invoices) == 0 {
		return nil, fmt.Errorf("%w: doc number %s", integration.ErrInvoiceNotFound, docNumber)
	}
	return wireToInvoice(resp.Invoices[0]), nil
}

// CreateInvoice creates the invoice described by the draft. The call is
// made once; a failure here means the caller reports the order, not
// that we try again.
func (c *Client) CreateInvoice(ctx context.Context, draft *integration.InvoiceDraft) (*integration.Invoice, error) {
	payload, err := json.Marshal(draftToWire(draft))
	if err != nil {
		return nil, fmt.Errorf("accounting: failed to encode invoice: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL()+"invoices", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.logger.Error("Invoice creation rejected",
			zap.String("doc_number", draft.DocNumber),
			zap.Int("status", status))
		return nil, fmt.Errorf("%w: invoice creation returned HTTP %d", integration.ErrAccountingUnavailable, status)
	}

	var created wireInvoice
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("%w: invoice creation response: %v", integration.ErrAccountingUnavailable, err)
	}
	return wireToInvoice(created), nil
}

// DeleteInvoice removes an invoice by its accounting-system id.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	_, status, err := c.do(ctx, http.MethodDelete, c.baseURL()+"invoices/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: invoice %s", integration.ErrInvoiceNotFound, id)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("%w: invoice deletion returned HTTP %d", integration.ErrAccountingUnavailable, status)
	}
	return nil
}

// FetchItemRef resolves an item id to a reference.
func (c *Client) FetchItemRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.fetchRef(ctx, "items", id)
}

// FetchClassRef resolves a class id to a reference.
func (c *Client) FetchClassRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.fetchRef(ctx, "classes", id)
}

// FetchTermRef resolves a payment term id to a reference.
func (c *Client) FetchTermRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.fetchRef(ctx, "terms", id)
}

// FetchCustomerRef resolves a customer id to a reference.
func (c *Client) FetchCustomerRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.fetchRef(ctx, "customers", id)
}

func (c *Client) fetchRef(ctx context.Context, entity, id string) (integration.Ref, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.baseURL()+entity+"/"+url.PathEscape(id), nil)
	if err != nil {
		return integration.Ref{}, err
	}
	if status != http.StatusOK {
		return integration.Ref{}, fmt.Errorf("%w: %s/%s returned HTTP %d", integration.ErrAccountingUnavailable, entity, id, status)
	}

	var resp refResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return integration.Ref{}, fmt.Errorf("%w: %s/%s: %v", integration.ErrAccountingUnavailable, entity, id, err)
	}
	if resp.ID == "" {
		return integration.Ref{}, fmt.Errorf("%w: %s/%s response missing id", integration.ErrAccountingUnavailable, entity, id)
	}
	return resp.toRef(), nil
}

// do performs one HTTP exchange and returns the body and status code.
// Transport failures map to ErrAccountingUnavailable; status handling
// stays with the caller.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("accounting: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrAccountingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("accounting: failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) baseURL() string {
	if strings.HasSuffix(c.config.BaseURL, "/") {
		return c.config.BaseURL
	}
	return c.config.BaseURL + "/"
}

// Ensure Client implements the gateway interface
var _ integration.AccountingGateway = (*Client)(nil)
