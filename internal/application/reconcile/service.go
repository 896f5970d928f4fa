// Package reconcile replaces provisional per-item quantities with
// authoritative unit costs derived from the order-management system and
// applies the OMS order totals.
package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/integration"
	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/report"
)

// errItemMismatch marks an order whose items could not be matched against
// the OMS record (missing SKU, or no positive quantity on either side).
var errItemMismatch = errors.New("reconcile: item mismatch")

// Service reconciles assembled buckets against the OMS. One instance per
// run; not safe for concurrent use.
type Service struct {
	gateway        integration.OMSGateway
	registry       *report.Registry
	logger         *zap.Logger
	useOMSShipping bool
}

// Config holds the reconciler dependencies.
type Config struct {
	Gateway  integration.OMSGateway
	Registry *report.Registry
	Logger   *zap.Logger
	// UseOMSShipping replaces the source-database shipping cost with the
	// OMS shipping figure when the OMS provides one.
	UseOMSShipping bool
}

// NewService creates a reconciler.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:        cfg.Gateway,
		registry:       cfg.Registry,
		logger:         logger,
		useOMSShipping: cfg.UseOMSShipping,
	}
}

// ReconcileAll processes every order in every bucket. Orders that cannot
// be reconciled are classified, recorded, and dropped; buckets left with
// no surviving orders are removed entirely. The batch never aborts for a
// per-order failure.
func (s *Service) ReconcileAll(ctx context.Context, buckets *order.BucketSet) {
	for _, key := range buckets.Keys() {
		bucket := buckets.Get(key)

		kept := bucket.Orders[:0]
		for _, o := range bucket.Orders {
			if err := s.reconcileOrder(ctx, o); err != nil {
				s.classify(o, err)
				continue
			}
			kept = append(kept, o)
		}
		bucket.Orders = kept

		if len(bucket.Orders) == 0 {
			s.logger.Info("Removing empty bucket after reconciliation",
				zap.String("partner_code", key.PartnerCode),
				zap.String("export_folder", key.ExportFolder))
			buckets.Remove(key)
		}
	}
}

// reconcileOrder fetches the OMS record and rewrites the order in place.
// The order is only mutated once every item has resolved, so a failed
// order keeps its provisional state.
func (s *Service) reconcileOrder(ctx context.Context, o *order.Order) error {
	scOrder, err := s.gateway.FetchOrder(ctx, o.OMSOrderID)
	if err != nil {
		return err
	}

	lookup := make(map[string]integration.OMSOrderItem, len(scOrder.Items))
	for _, item := range scOrder.Items {
		lookup[item.ItemID] = item
	}

	items := make([]order.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.SKU == "" {
			return errItemMismatch
		}
		scItem, ok := lookup[item.SKU]
		if !ok {
			return errItemMismatch
		}

		// Prefer the local quantity; fall back to the OMS quantity when
		// the source column was null or zero.
		qty := item.Quantity
		if qty <= 0 {
			qty = scItem.Quantity
		}
		if qty <= 0 {
			return errItemMismatch
		}

		items = append(items, order.LineItem{
			SKU:         item.SKU,
			Quantity:    qty,
			UnitCost:    scItem.LineTotal / float64(qty),
			HasUnitCost: true,
		})
	}

	o.Items = items
	o.Tax = scOrder.Tax
	o.Subtotal = scOrder.GrandTotal
	if s.useOMSShipping && scOrder.Shipping != nil {
		o.Shipping = *scOrder.Shipping
	}
	o.Reconciled = true
	return nil
}

func (s *Service) classify(o *order.Order, err error) {
	var cat report.Category
	switch {
	case errors.Is(err, integration.ErrOMSOrderNotFound),
		errors.Is(err, integration.ErrOMSInvalidResponse):
		cat = report.CategoryNotFoundInOMS
	case errors.Is(err, errItemMismatch):
		cat = report.CategoryItemMismatch
	default:
		cat = report.CategoryUnexpectedError
	}

	s.logger.Warn("Dropping order from reconciliation",
		zap.String("po_number", o.PurchaseOrderNumber),
		zap.String("partner_code", o.PartnerCode),
		zap.String("category", string(cat)),
		zap.Error(err))
	s.registry.Add(cat, o.PartnerCode, o.PurchaseOrderNumber)
}
