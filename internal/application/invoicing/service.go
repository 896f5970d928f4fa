// Package invoicing ensures at most one accounting-system invoice exists
// per order id, building and persisting invoices for reconciled orders.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/integration"
	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/report"
	"github.com/dropship/invoicer/internal/domain/shared/valueobject"
)

// ErrMissingVendorMapping is returned when no customer configuration
// exists for an order's partner. This is a hard stop for that order, not
// a silent default.
var ErrMissingVendorMapping = errors.New("invoicing: no vendor mapping for partner")

// Synthetic line descriptions. The export layer keys off the same names.
const (
	taxLineDescription      = "Taxes"
	shippingLineDescription = "Shipping"
)

// Outcome is the per-order result of EnsureInvoice.
type Outcome int

const (
	// OutcomeCreated means a new invoice was persisted.
	OutcomeCreated Outcome = iota
	// OutcomeAlreadyInvoiced means an invoice with the order id already
	// exists; reported, not an error.
	OutcomeAlreadyInvoiced
	// OutcomeFailed means the order could not be invoiced; classified and
	// skipped, the batch continues.
	OutcomeFailed
)

// VendorMapping is the partner-to-customer configuration: which
// accounting customer an invoice bills to, how it ships, and where the
// bill-to mail goes.
type VendorMapping struct {
	CustomerID string
	ShipMethod string
	Email      string
}

// ReferenceIDs are the accounting-system ids of the shared entities every
// invoice line attaches to.
type ReferenceIDs struct {
	Item         string
	TaxItem      string
	ShippingItem string
	Class        string
	Term         string
}

// Service builds invoices for reconciled orders. One instance per run;
// the reference cache is valid for the lifetime of that run only.
type Service struct {
	gateway  integration.AccountingGateway
	repo     order.Repository
	registry *report.Registry
	vendors  map[string]VendorMapping
	refIDs   ReferenceIDs
	refs     *refCache
	logger   *zap.Logger
}

// Config holds the invoice builder dependencies.
type Config struct {
	Gateway    integration.AccountingGateway
	Repository order.Repository
	Registry   *report.Registry
	Vendors    map[string]VendorMapping
	References ReferenceIDs
	Logger     *zap.Logger
}

// NewService creates an invoice builder with a fresh reference cache.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:  cfg.Gateway,
		repo:     cfg.Repository,
		registry: cfg.Registry,
		vendors:  cfg.Vendors,
		refIDs:   cfg.References,
		refs:     newRefCache(cfg.Gateway),
		logger:   logger,
	}
}

// EnsureInvoice guarantees at most one invoice exists for the order's
// normalized id. When the existence check itself fails the order is
// classified unable_to_invoice and nothing is created: creating blindly
// during an accounting-system outage risks duplicates.
func (s *Service) EnsureInvoice(ctx context.Context, o *order.Order) Outcome {
	existing, err := s.gateway.FindInvoiceByDocNumber(ctx, o.OrderID)
	switch {
	case err == nil:
		s.logger.Info("Order already invoiced",
			zap.String("order_id", o.OrderID),
			zap.String("invoice_id", existing.ID))
		s.registry.Add(report.CategoryAlreadyInvoiced, o.PartnerCode, o.PurchaseOrderNumber)
		return OutcomeAlreadyInvoiced

	case errors.Is(err, integration.ErrInvoiceNotFound):
		// Confirmed absent; safe to create.

	default:
		s.logger.Error("Invoice existence check failed, refusing to create",
			zap.String("order_id", o.OrderID),
			zap.Error(err))
		s.registry.Add(report.CategoryUnableToInvoice, o.PartnerCode, o.PurchaseOrderNumber)
		return OutcomeFailed
	}

	draft, err := s.buildDraft(ctx, o)
	if err != nil {
		s.logger.Error("Failed to build invoice",
			zap.String("order_id", o.OrderID),
			zap.Error(err))
		s.registry.Add(report.CategoryUnableToInvoice, o.PartnerCode, o.PurchaseOrderNumber)
		return OutcomeFailed
	}

	// Creation is never retried: a failure here is reported, not retried.
	created, err := s.gateway.CreateInvoice(ctx, draft)
	if err != nil {
		s.logger.Error("Failed to create invoice",
			zap.String("order_id", o.OrderID),
			zap.Error(err))
		s.registry.Add(report.CategoryUnableToInvoice, o.PartnerCode, o.PurchaseOrderNumber)
		return OutcomeFailed
	}

	// Best-effort write-back; the invoice exists either way.
	if err := s.repo.SaveInvoiceID(ctx, o.PurchaseOrderNumber, created.ID); err != nil {
		s.logger.Warn("Could not persist invoice id",
			zap.String("po_number", o.PurchaseOrderNumber),
			zap.String("invoice_id", created.ID),
			zap.Error(err))
	}

	s.logger.Info("Invoice created",
		zap.String("order_id", o.OrderID),
		zap.String("invoice_id", created.ID))
	return OutcomeCreated
}

// DeleteInvoice removes an invoice by document number. Used by
// out-of-band correction tooling; failures are logged and reported as a
// boolean, never raised.
func (s *Service) DeleteInvoice(ctx context.Context, docNumber string) bool {
	existing, err := s.gateway.FindInvoiceByDocNumber(ctx, docNumber)
	if err != nil {
		s.logger.Error("Cannot delete invoice: lookup failed",
			zap.String("doc_number", docNumber),
			zap.Error(err))
		return false
	}
	if err := s.gateway.DeleteInvoice(ctx, existing.ID); err != nil {
		s.logger.Error("Failed to delete invoice",
			zap.String("doc_number", docNumber),
			zap.String("invoice_id", existing.ID),
			zap.Error(err))
		return false
	}
	return true
}

func (s *Service) buildDraft(ctx context.Context, o *order.Order) (*integration.InvoiceDraft, error) {
	vendor, ok := s.vendors[o.PartnerCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingVendorMapping, o.PartnerCode)
	}

	itemRef, err := s.refs.itemRef(ctx, s.refIDs.Item)
	if err != nil {
		return nil, err
	}
	taxRef, err := s.refs.taxItemRef(ctx, s.refIDs.TaxItem)
	if err != nil {
		return nil, err
	}
	shippingRef, err := s.refs.shippingItemRef(ctx, s.refIDs.ShippingItem)
	if err != nil {
		return nil, err
	}
	classRef, err := s.refs.classRef(ctx, s.refIDs.Class)
	if err != nil {
		return nil, err
	}
	termRef, err := s.refs.termRef(ctx, s.refIDs.Term)
	if err != nil {
		return nil, err
	}
	customerRef, err := s.refs.customerRef(ctx, vendor.CustomerID)
	if err != nil {
		return nil, err
	}

	dateISO := normalizeInvoiceDate(o.ShipDate)

	lines := make([]integration.InvoiceLine, 0, len(o.Items)+2)
	for _, item := range o.Items {
		qty := float64(item.Quantity)
		lines = append(lines, integration.InvoiceLine{
			Description: item.SKU,
			Quantity:    qty,
			UnitPrice:   item.UnitCost,
			Amount:      valueobject.RoundHalfUp(item.UnitCost * qty),
			ServiceDate: dateISO,
			ItemRef:     itemRef,
			ClassRef:    classRef,
		})
	}
	lines = append(lines,
		integration.InvoiceLine{
			Description: taxLineDescription,
			Quantity:    1,
			UnitPrice:   o.Tax,
			Amount:      valueobject.RoundHalfUp(o.Tax),
			ServiceDate: dateISO,
			ItemRef:     taxRef,
			ClassRef:    classRef,
		},
		integration.InvoiceLine{
			Description: shippingLineDescription,
			Quantity:    1,
			UnitPrice:   o.Shipping,
			Amount:      valueobject.RoundHalfUp(o.Shipping),
			ServiceDate: dateISO,
			ItemRef:     shippingRef,
			ClassRef:    classRef,
		},
	)

	return &integration.InvoiceDraft{
		DocNumber:      o.OrderID,
		CustomerRef:    customerRef,
		TermRef:        termRef,
		ShipMethod:     integration.Ref{Value: vendor.ShipMethod, Name: vendor.ShipMethod},
		TrackingNumber: o.TrackingNumber,
		ShipDate:       dateISO,
		TxnDate:        dateISO,
		BillEmail:      vendor.Email,
		ShipTo: integration.ShipAddress{
			Line1:      o.ShipTo.Street,
			City:       o.ShipTo.City,
			State:      o.ShipTo.State,
			Country:    o.ShipTo.Country,
			PostalCode: o.ShipTo.PostalCode,
		},
		Lines: lines,
	}, nil
}

// normalizeInvoiceDate converts the order ship date to ISO YYYY-MM-DD.
// Unknown shapes pass through unchanged to avoid hard failures on a
// single order.
func normalizeInvoiceDate(d string) string {
	if d == "" {
		return ""
	}
	for _, layout := range []string{"2006/01/02", "2006-01-02", "1/2/2006"} {
		if parsed, err := time.Parse(layout, d); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return d
}
