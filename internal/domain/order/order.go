// Package order holds the invoice-eligible order model and the assembly
// logic that turns raw eligible-order rows into dropshipper buckets.
package order

// LineItem is one order line. UnitCost is never trusted from the source
// database; it stays absent until reconciliation derives it from the
// order-management system's line totals.
type LineItem struct {
	SKU         string
	Quantity    int
	UnitCost    float64
	HasUnitCost bool
}

// Address is the destination address carried through to both the invoice
// and the export rows.
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Order is the central entity of the pipeline. Financial fields are
// placeholders at assembly time and are populated by reconciliation with
// the OMS grand-total semantics (items + tax + shipping).
type Order struct {
	// Identity
	PurchaseOrderNumber string // partner-issued
	OrderID             string // partner code + PO number, idempotently prefixed
	OMSOrderID          string // key into the order-management system

	// Financials
	Subtotal float64
	Tax      float64
	Shipping float64
	// Reconciled is set once the OMS totals have been applied.
	Reconciled bool

	Items []LineItem

	// Logistics
	ShipDate       string // YYYY/MM/DD, empty when the tracking date is unknown
	TrackingNumber string
	ShipTo         Address

	// Dropshipper linkage
	PartnerCode string
	PartnerName string
}

// ItemCount returns the number of line items, never less than one, for
// even-split fallback pricing.
func (o *Order) ItemCount() int {
	if len(o.Items) < 1 {
		return 1
	}
	return len(o.Items)
}
