// Package export turns reconciled orders into layout-shaped tables
// ready for CSV materialization.
package export

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/shared/valueobject"
)

// Fixed values required by the aag partner feed.
const (
	aagCustomerName = "auto_accessories_garage"
	aagCarrierName  = "FEDEX_GROUND"
)

// Table is an ordered, fully materialized export: every row carries a
// value for every column, in the layout's declared order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Renderer accumulates rows for one bucket. Create one per bucket and
// discard it after materializing.
type Renderer struct {
	layout  string
	columns []string
	rows    []map[string]string
	logger  *zap.Logger
}

// NewRenderer builds a renderer for the named layout. The layout must
// exist in the supplied column map.
func NewRenderer(layout string, layouts map[string][]string, logger *zap.Logger) (*Renderer, error) {
	columns, ok := layouts[layout]
	if !ok {
		return nil, fmt.Errorf("export: no columns configured for layout %q", layout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{layout: layout, columns: columns, logger: logger}, nil
}

// AddOrder appends the order's export rows. A failure is logged and
// reported as false; rows already accumulated are untouched and the
// caller decides what to do with the order.
func (r *Renderer) AddOrder(o *order.Order) bool {
	var err error
	switch r.layout {
	case "aag":
		err = r.addAAGRows(o)
	default:
		err = r.addDefaultRows(o)
	}
	if err != nil {
		r.logger.Error("Failed to render order",
			zap.String("po_number", o.PurchaseOrderNumber),
			zap.String("layout", r.layout),
			zap.Error(err))
		return false
	}
	return true
}

// HasData reports whether any rows were accumulated. An empty renderer
// must not be written out as a header-only file.
func (r *Renderer) HasData() bool {
	return len(r.rows) > 0
}

// Table materializes the accumulated rows: columns in declared order,
// any missing value defaulted to the empty string.
func (r *Renderer) Table() *Table {
	rows := make([][]string, 0, len(r.rows))
	for _, src := range r.rows {
		row := make([]string, len(r.columns))
		for i, col := range r.columns {
			row[i] = src[col]
		}
		rows = append(rows, row)
	}
	return &Table{Columns: append([]string(nil), r.columns...), Rows: rows}
}

func (r *Renderer) addDefaultRows(o *order.Order) error {
	if len(o.Items) == 0 {
		return fmt.Errorf("order %s has no items", o.PurchaseOrderNumber)
	}
	base := map[string]string{
		"po_number":               o.PurchaseOrderNumber,
		"invoice_number":          o.OrderID,
		"invoice_date":            o.ShipDate,
		"invoice_total_amount":    formatAmount(o.Subtotal),
		"invoice_subtotal_amount": formatAmount(valueobject.RoundHalfUp(o.Subtotal - o.Tax)),
		"invoice_tax_amount":      formatAmount(o.Tax),
	}
	for _, item := range o.Items {
		row := cloneRow(base)
		row["line_item_sku"] = item.SKU
		row["line_item_quantity"] = strconv.Itoa(item.Quantity)
		if item.HasUnitCost {
			row["line_item_unit_cost"] = formatAmount(item.UnitCost)
		}
		r.rows = append(r.rows, row)
	}
	return nil
}

func (r *Renderer) addAAGRows(o *order.Order) error {
	base := map[string]string{
		"Invoice Number": o.OrderID,
		"SONumber":       o.PurchaseOrderNumber,
		"Date":           normalizeExportDate(o.ShipDate),
		"Customer":       aagCustomerName,
		"CarrierName":    aagCarrierName,
		"TrackingNumber": o.TrackingNumber,
	}

	itemCount := o.ItemCount()
	for _, item := range o.Items {
		price := r.itemPrice(o, item, itemCount)
		qty := item.Quantity
		lineQty := qty
		if lineQty < 1 {
			lineQty = 1
		}
		row := cloneRow(base)
		row["item"] = item.SKU
		row["qty"] = strconv.Itoa(qty)
		row["price"] = formatAmount(valueobject.RoundTo(price*float64(lineQty), 3))
		r.rows = append(r.rows, row)
	}

	taxes := cloneRow(base)
	taxes["item"] = "Taxes"
	taxes["qty"] = "1"
	taxes["price"] = formatAmount(o.Tax)
	r.rows = append(r.rows, taxes)

	shipping := cloneRow(base)
	shipping["item"] = "SHIPPING"
	shipping["qty"] = "1"
	shipping["price"] = formatAmount(o.Shipping)
	r.rows = append(r.rows, shipping)
	return nil
}

// itemPrice prefers the reconciled unit cost; without one, the item
// total splits evenly across items: (subtotal - tax - shipping) / count.
func (r *Renderer) itemPrice(o *order.Order, item order.LineItem, itemCount int) float64 {
	if item.HasUnitCost && item.UnitCost > 0 {
		return item.UnitCost
	}
	return (o.Subtotal - o.Tax - o.Shipping) / float64(itemCount)
}

// normalizeExportDate coerces ship dates to YYYY/MM/DD. Values already
// in that shape and M/D/YYYY variants are accepted; anything else
// passes through unchanged.
func normalizeExportDate(d string) string {
	if d == "" {
		return ""
	}
	for _, layout := range []string{"2006/01/02", "1/2/2006", "2006-01-02"} {
		if parsed, err := time.Parse(layout, d); err == nil {
			return parsed.Format("2006/01/02")
		}
	}
	return d
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cloneRow(base map[string]string) map[string]string {
	row := make(map[string]string, len(base)+3)
	for k, v := range base {
		row[k] = v
	}
	return row
}
