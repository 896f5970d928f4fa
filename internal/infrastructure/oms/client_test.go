package oms

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
			config: &Config{BaseURL: "https://oms.example.com/rest/api", Username: "u", Password: "p"},
		},
		{
			name:    "missing base url",
			config:  &Config{Username: "u", Password: "p"},
			wantErr: true,
		},
		{
			name:    "missing credentials",
			config:  &Config{BaseURL: "https://oms.example.com/rest/api"},
			wantErr: true,
		},
		{
			name:    "negative retries",
			config:  &Config{BaseURL: "https://oms.example.com", Username: "u", Password: "p", MaxRetries: -1},
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

// newTestServer serves POST /token and GET /Orders/{id} with the given
// order handler.
func newTestServer(t *testing.T, orders http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["Username"] != "api-user" || creds["Password"] != "api-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/Orders/", orders)
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL:    baseURL,
		Username:   "api-user",
		Password:   "api-pass",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestClient_FetchOrder(t *testing.T) {
	shipping := 4.99
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/Orders/sc-1", r.URL.Path)
		json.NewEncoder(w).Encode(orderResponse{
			TotalInfo: totalInfo{Tax: 1.60, GrandTotal: 23.18, ShippingTotal: &shipping},
			OrderItems: []orderItem{
				{ProductIDOriginal: "SKU1", LineTotal: 19.98, Qty: 2},
			},
		})
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	order, err := client.FetchOrder(context.Background(), "sc-1")

	require.NoError(t, err)
	assert.InDelta(t, 1.60, order.Tax, 1e-9)
	assert.InDelta(t, 23.18, order.GrandTotal, 1e-9)
	require.NotNil(t, order.Shipping)
	assert.InDelta(t, 4.99, *order.Shipping, 1e-9)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "SKU1", order.Items[0].ItemID)
	assert.InDelta(t, 19.98, order.Items[0].LineTotal, 1e-9)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestClient_FetchOrder_NotFound(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	_, err := client.FetchOrder(context.Background(), "sc-404")

	assert.ErrorIs(t, err, integration.ErrOMSOrderNotFound)
}

func TestClient_FetchOrder_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(orderResponse{
			TotalInfo:  totalInfo{GrandTotal: 10},
			OrderItems: []orderItem{{ProductIDOriginal: "SKU1", LineTotal: 10, Qty: 1}},
		})
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	order, err := client.FetchOrder(context.Background(), "sc-1")

	require.NoError(t, err)
	assert.InDelta(t, 10.0, order.GrandTotal, 1e-9)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchOrder_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 1)
	_, err := client.FetchOrder(context.Background(), "sc-1")

	assert.ErrorIs(t, err, integration.ErrOMSUnavailable)
	assert.Equal(t, int32(2), calls.Load()) // initial attempt plus one retry
}

func TestClient_FetchOrder_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	_, err := client.FetchOrder(context.Background(), "sc-404")

	assert.ErrorIs(t, err, integration.ErrOMSOrderNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchOrder_InvalidJSON(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.FetchOrder(context.Background(), "sc-1")

	assert.ErrorIs(t, err, integration.ErrOMSInvalidResponse)
}

func TestClient_TokenFetchedOnceAcrossCalls(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/Orders/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orderResponse{
			TotalInfo:  totalInfo{GrandTotal: 10},
			OrderItems: []orderItem{{ProductIDOriginal: "SKU1", LineTotal: 10, Qty: 1}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.FetchOrder(context.Background(), "sc-1")
	require.NoError(t, err)
	_, err = client.FetchOrder(context.Background(), "sc-2")
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestClient_BadCredentials(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	client, err := NewClient(&Config{
		BaseURL:  server.URL,
		Username: "wrong",
		Password: "wrong",
	}, nil)
	require.NoError(t, err)

	_, err = client.FetchOrder(context.Background(), "sc-1")
	assert.ErrorIs(t, err, integration.ErrOMSUnavailable)
}
