package order

import (
	"context"
	"time"
)

// ReadFilter narrows the eligible-order query.
type ReadFilter struct {
	// AllowedPONumbers restricts the run to the listed PO numbers when
	// non-empty. Used for targeted re-runs.
	AllowedPONumbers []string
}

// InvoicedOrder is one previously invoiced order, read back for the
// accuracy audit.
type InvoicedOrder struct {
	OrderID  string
	Subtotal float64
}

// Repository is the relational read/write contract consumed by the
// pipeline. Implementations own SQL dialect and connection management.
type Repository interface {
	// FindInvoiceReady returns one row per eligible order with items
	// nested, already filtered to tracked, not-yet-invoiced orders of
	// non-excluded partners.
	FindInvoiceReady(ctx context.Context, filter ReadFilter) ([]RawOrderRow, error)

	// SaveInvoiceID persists the accounting-system invoice id against the
	// purchase order and marks it invoiced.
	SaveInvoiceID(ctx context.Context, poNumber, invoiceID string) error

	// FindInvoicedSince returns orders invoiced at or after the given
	// time, for the invoice accuracy audit.
	FindInvoicedSince(ctx context.Context, since time.Time) ([]InvoicedOrder, error)
}
