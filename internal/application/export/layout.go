package export

import (
	"context"

	"go.uber.org/zap"
)

// LayoutSource supplies the named column layouts for invoice exports,
// normally read from the file format tables.
type LayoutSource interface {
	InvoiceLayouts(ctx context.Context) (map[string][]string, error)
}

// DefaultLayouts returns the built-in column layouts. They mirror the
// seeded file format rows and keep a run alive when the layout tables
// cannot be read.
func DefaultLayouts() map[string][]string {
	return map[string][]string{
		"default": {
			"po_number",
			"invoice_number",
			"invoice_date",
			"invoice_total_amount",
			"invoice_subtotal_amount",
			"invoice_tax_amount",
			"line_item_sku",
			"line_item_quantity",
			"line_item_unit_cost",
		},
		"aag": {
			"Invoice Number",
			"SONumber",
			"Date",
			"Customer",
			"CarrierName",
			"TrackingNumber",
			"item",
			"qty",
			"price",
		},
	}
}

// LoadLayouts reads layouts from the source, falling back to the
// built-ins when the read fails or returns nothing.
func LoadLayouts(ctx context.Context, source LayoutSource, logger *zap.Logger) map[string][]string {
	if logger == nil {
		logger = zap.NewNop()
	}
	if source == nil {
		return DefaultLayouts()
	}
	layouts, err := source.InvoiceLayouts(ctx)
	if err != nil || len(layouts) == 0 {
		logger.Warn("Using built-in export layouts", zap.Error(err))
		return DefaultLayouts()
	}
	return layouts
}
