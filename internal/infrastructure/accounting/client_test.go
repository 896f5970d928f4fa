package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropship/invoicer/internal/domain/integration"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: &Config{BaseURL: "https://books.example.com/v3", Token: "tok"},
		},
		{
			name:    "missing base url",
			config:  &Config{Token: "tok"},
			wantErr: true,
		},
		{
			name:    "missing token",
			config:  &Config{BaseURL: "https://books.example.com/v3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL: baseURL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestClient_FindInvoiceByDocNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/invoices", r.URL.Path)
		assert.Equal(t, "AAG1001", r.URL.Query().Get("docNumber"))
		json.NewEncoder(w).Encode(invoiceQueryResponse{
			Invoices: []wireInvoice{
				{ID: "42", DocNumber: "AAG1001", TotalAmt: 23.18},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	inv, err := client.FindInvoiceByDocNumber(context.Background(), "AAG1001")

	require.NoError(t, err)
	assert.Equal(t, "42", inv.ID)
	assert.Equal(t, "AAG1001", inv.DocNumber)
	assert.InDelta(t, 23.18, inv.Total, 1e-9)
}

func TestClient_FindInvoiceByDocNumber_EmptyMatchIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(invoiceQueryResponse{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FindInvoiceByDocNumber(context.Background(), "AAG9999")

	assert.ErrorIs(t, err, integration.ErrInvoiceNotFound)
}

func TestClient_FindInvoiceByDocNumber_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FindInvoiceByDocNumber(context.Background(), "AAG1001")

	// A failed check must never read as absence
	assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
	assert.NotErrorIs(t, err, integration.ErrInvoiceNotFound)
}

func TestClient_FindInvoiceByDocNumber_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	_, err := client.FindInvoiceByDocNumber(context.Background(), "AAG1001")

	assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
}

func TestClient_CreateInvoice(t *testing.T) {
	var received wireInvoice
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		received.ID = "101"
		received.TotalAmt = 23.18
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(received)
	}))
	defer server.Close()

	draft := &integration.InvoiceDraft{
		DocNumber:      "AAG1001",
		CustomerRef:    integration.Ref{Value: "77", Name: "Auto Accessories Garage"},
		TermRef:        integration.Ref{Value: "4", Name: "Net 30"},
		ShipMethod:     integration.Ref{Value: "FEDEX Ground HD", Name: "FEDEX Ground HD"},
		TrackingNumber: "1Z999",
		ShipDate:       "2025-07-07",
		TxnDate:        "2025-07-07",
		BillEmail:      "billing@example.com",
		ShipTo:         integration.ShipAddress{Line1: "1 Main St", City: "Reno", State: "NV", Country: "US", PostalCode: "89501"},
		Lines: []integration.InvoiceLine{
			{
				Description: "SKU1",
				Quantity:    2,
				UnitPrice:   9.99,
				Amount:      19.98,
				ServiceDate: "2025-07-07",
				ItemRef:     integration.Ref{Value: "2", Name: "Dropship Item"},
				ClassRef:    integration.Ref{Value: "1300", Name: "Dropship"},
			},
			{
				Description: "Taxes",
				Quantity:    1,
				UnitPrice:   1.60,
				Amount:      1.60,
				ServiceDate: "2025-07-07",
				ItemRef:     integration.Ref{Value: "24", Name: "Tax"},
				ClassRef:    integration.Ref{Value: "1300", Name: "Dropship"},
			},
		},
	}

	client := newTestClient(t, server.URL)
	inv, err := client.CreateInvoice(context.Background(), draft)

	require.NoError(t, err)
	assert.Equal(t, "101", inv.ID)
	assert.Equal(t, "AAG1001", inv.DocNumber)

	assert.Equal(t, "AAG1001", received.DocNumber)
	assert.Equal(t, "77", received.CustomerRef.Value)
	require.NotNil(t, received.SalesTermRef)
	assert.Equal(t, "4", received.SalesTermRef.Value)
	require.NotNil(t, received.ShipMethod)
	assert.Equal(t, "FEDEX Ground HD", received.ShipMethod.Value)
	require.NotNil(t, received.BillEmail)
	assert.Equal(t, "billing@example.com", received.BillEmail.Address)
	require.NotNil(t, received.ShipAddr)
	assert.Equal(t, "NV", received.ShipAddr.CountrySubDivisionCode)
	require.Len(t, received.Line, 2)
	assert.Equal(t, "SalesItemLineDetail", received.Line[0].DetailType)
	assert.Equal(t, "SKU1", received.Line[0].Description)
	assert.InDelta(t, 19.98, received.Line[0].Amount, 1e-9)
	assert.InDelta(t, 2.0, received.Line[0].SalesItemLineDetail.Qty, 1e-9)
	assert.Equal(t, "24", received.Line[1].SalesItemLineDetail.ItemRef.Value)
}

func TestClient_CreateInvoice_OmitsEmptyOptionalFields(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(wireInvoice{ID: "102", DocNumber: "AAG1002"})
	}))
	defer server.Close()

	draft := &integration.InvoiceDraft{
		DocNumber:   "AAG1002",
		CustomerRef: integration.Ref{Value: "77"},
		Lines: []integration.InvoiceLine{
			{Description: "SKU1", Quantity: 1, UnitPrice: 5, Amount: 5},
		},
	}

	client := newTestClient(t, server.URL)
	_, err := client.CreateInvoice(context.Background(), draft)

	require.NoError(t, err)
	assert.NotContains(t, raw, "BillEmail")
	assert.NotContains(t, raw, "ShipAddr")
	assert.NotContains(t, raw, "SalesTermRef")
	assert.NotContains(t, raw, "ShipMethodRef")
}

func TestClient_CreateInvoice_RejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	draft := &integration.InvoiceDraft{
		DocNumber:   "AAG1003",
		CustomerRef: integration.Ref{Value: "77"},
	}

	client := newTestClient(t, server.URL)
	_, err := client.CreateInvoice(context.Background(), draft)

	assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DeleteInvoice(t *testing.T) {
	t.Run("deletes by id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/invoices/42", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		assert.NoError(t, client.DeleteInvoice(context.Background(), "42"))
	})

	t.Run("missing invoice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.DeleteInvoice(context.Background(), "42")
		assert.ErrorIs(t, err, integration.ErrInvoiceNotFound)
	})

	t.Run("server failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.DeleteInvoice(context.Background(), "42")
		assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
	})
}

func TestClient_FetchRefs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items/2":
			json.NewEncoder(w).Encode(refResponse{ID: "2", Name: "Dropship Item"})
		case "/classes/1300":
			json.NewEncoder(w).Encode(refResponse{ID: "1300", Name: "Dropship"})
		case "/terms/4":
			json.NewEncoder(w).Encode(refResponse{ID: "4", Name: "Net 30"})
		case "/customers/77":
			json.NewEncoder(w).Encode(refResponse{ID: "77", Name: "Auto Accessories Garage"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	item, err := client.FetchItemRef(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, integration.Ref{Value: "2", Name: "Dropship Item"}, item)

	class, err := client.FetchClassRef(ctx, "1300")
	require.NoError(t, err)
	assert.Equal(t, "Dropship", class.Name)

	term, err := client.FetchTermRef(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "Net 30", term.Name)

	customer, err := client.FetchCustomerRef(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, "Auto Accessories Garage", customer.Name)

	_, err = client.FetchItemRef(ctx, "999")
	assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
}

func TestClient_FetchRef_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(refResponse{Name: "nameless"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchItemRef(context.Background(), "2")

	assert.ErrorIs(t, err, integration.ErrAccountingUnavailable)
}
