package integration

import (
	"context"
	"errors"
)

// Accounting gateway errors
var (
	// ErrInvoiceNotFound is the sentinel for a successful lookup that
	// found no invoice with the document number.
	ErrInvoiceNotFound = errors.New("accounting: invoice not found")
	// ErrAccountingUnavailable indicates the lookup or mutation itself
	// failed. Callers must not treat this as absence: creating blindly on
	// a failed existence check risks duplicate invoices.
	ErrAccountingUnavailable = errors.New("accounting: unavailable")
)

// Ref is a resolved reference to an accounting-system entity (item,
// class, term, customer).
type Ref struct {
	Value string
	Name  string
}

// ShipAddress is the invoice ship-to address.
type ShipAddress struct {
	Line1      string
	City       string
	State      string
	Country    string
	PostalCode string
}

// InvoiceLine is one sales line of an invoice draft.
type InvoiceLine struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
	ServiceDate string
	ItemRef     Ref
	ClassRef    Ref
}

// InvoiceDraft is an invoice to be created. DocNumber carries the
// normalized order id, which is what the idempotency check keys on.
type InvoiceDraft struct {
	DocNumber      string
	CustomerRef    Ref
	TermRef        Ref
	ShipMethod     Ref
	TrackingNumber string
	ShipDate       string
	TxnDate        string
	BillEmail      string
	ShipTo         ShipAddress
	Lines          []InvoiceLine
}

// Invoice is an invoice that exists in the accounting system.
type Invoice struct {
	ID        string
	DocNumber string
	Total     float64
}

// AccountingGateway is the port to the external accounting system.
// Mutating calls are never retried by implementations; a failure is
// reported, not retried, to avoid duplicate-invoice risk.
type AccountingGateway interface {
	// FindInvoiceByDocNumber returns the invoice with the given document
	// number, ErrInvoiceNotFound when the lookup succeeded but found
	// nothing, or ErrAccountingUnavailable when the lookup itself failed.
	FindInvoiceByDocNumber(ctx context.Context, docNumber string) (*Invoice, error)

	CreateInvoice(ctx context.Context, draft *InvoiceDraft) (*Invoice, error)

	DeleteInvoice(ctx context.Context, id string) error

	// Reference lookups, memoized by the caller for the run.
	FetchItemRef(ctx context.Context, id string) (Ref, error)
	FetchClassRef(ctx context.Context, id string) (Ref, error)
	FetchTermRef(ctx context.Context, id string) (Ref, error)
	FetchCustomerRef(ctx context.Context, id string) (Ref, error)
}
