// Package integration defines the platform-neutral ports to the external
// order-management and accounting systems. Infrastructure adapters
// implement these interfaces against the concrete HTTP APIs.
package integration

import (
	"context"
	"errors"
)

// OMS gateway errors
var (
	// ErrOMSOrderNotFound indicates the OMS returned a non-success status
	// for the order lookup.
	ErrOMSOrderNotFound = errors.New("oms: order not found")
	// ErrOMSInvalidResponse indicates the OMS returned a body that could
	// not be parsed.
	ErrOMSInvalidResponse = errors.New("oms: invalid response")
	// ErrOMSUnavailable indicates the OMS could not be reached after
	// retries.
	ErrOMSUnavailable = errors.New("oms: unavailable")
)

// OMSOrderItem is one authoritative order line from the OMS.
type OMSOrderItem struct {
	// ItemID is the identifier the OMS uses for the product, matched
	// against the local SKU.
	ItemID    string
	LineTotal float64
	Quantity  int
}

// OMSOrder carries the authoritative totals and per-item line amounts for
// one order. GrandTotal covers items, tax and shipping.
type OMSOrder struct {
	Tax        float64
	GrandTotal float64
	// Shipping is nil when the OMS response carries no shipping figure.
	Shipping *float64
	Items    []OMSOrderItem
}

// OMSGateway fetches authoritative order data. Implementations must make
// the lookup idempotent and safe to retry.
type OMSGateway interface {
	FetchOrder(ctx context.Context, omsOrderID string) (*OMSOrder, error)
}
