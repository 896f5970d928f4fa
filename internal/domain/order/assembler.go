package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropship/invoicer/internal/domain/shared"
)

// ShipDateFormat is the normalized ship date layout used on orders.
const ShipDateFormat = "2006/01/02"

// RawOrderItem is one pre-aggregated item of a raw eligible-order row.
// Quantity may arrive as zero when the source column is null.
type RawOrderItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// RawOrderRow is one row of the database read contract: a single eligible
// order with its items nested. Filtering (tracking present, not yet
// invoiced, excluded partner codes) happens upstream in the query.
type RawOrderRow struct {
	PurchaseOrderNumber string
	OMSOrderID          string
	ShippingCost        float64
	TrackingNumber      string
	TrackingDate        *time.Time
	Street              string
	City                string
	State               string
	Country             string
	PostalCode          string
	PartnerCode         string
	PartnerName         string
	ExportFolder        string
	LayoutName          string
	Items               []RawOrderItem
}

// NormalizeOrderID prefixes the PO number with the partner code unless it
// is already prefixed. Idempotent: applying it twice yields the same id.
func NormalizeOrderID(partnerCode, poNumber string) string {
	if strings.HasPrefix(poNumber, partnerCode) {
		return poNumber
	}
	return partnerCode + poNumber
}

// Assemble groups raw rows into dropshipper buckets keyed by partner code
// and export folder. The first row for a key seeds the bucket's layout
// name; later rows append to its order list. A malformed row means the
// upstream contract is broken, so assembly fails the whole run rather
// than dropping the row.
func Assemble(rows []RawOrderRow) (*BucketSet, error) {
	buckets := NewBucketSet()

	for i, row := range rows {
		if err := validateRow(row); err != nil {
			return nil, fmt.Errorf("row %d (po %q): %w", i, row.PurchaseOrderNumber, err)
		}

		o := &Order{
			PurchaseOrderNumber: row.PurchaseOrderNumber,
			OrderID:             NormalizeOrderID(row.PartnerCode, row.PurchaseOrderNumber),
			OMSOrderID:          row.OMSOrderID,
			Shipping:            row.ShippingCost,
			TrackingNumber:      row.TrackingNumber,
			ShipTo: Address{
				Street:     row.Street,
				City:       row.City,
				State:      row.State,
				Country:    row.Country,
				PostalCode: row.PostalCode,
			},
			PartnerCode: row.PartnerCode,
			PartnerName: row.PartnerName,
		}
		if row.TrackingDate != nil {
			o.ShipDate = row.TrackingDate.Format(ShipDateFormat)
		}
		for _, item := range row.Items {
			o.Items = append(o.Items, LineItem{SKU: item.SKU, Quantity: item.Quantity})
		}

		key := BucketKey{PartnerCode: row.PartnerCode, ExportFolder: row.ExportFolder}
		if b := buckets.Get(key); b != nil {
			b.Orders = append(b.Orders, o)
			continue
		}
		buckets.Add(&DropshipperBucket{
			Key:    key,
			Layout: row.LayoutName,
			Orders: []*Order{o},
		})
	}

	return buckets, nil
}

func validateRow(row RawOrderRow) error {
	switch {
	case row.PurchaseOrderNumber == "":
		return fmt.Errorf("%w: missing purchase order number", shared.ErrMalformedRow)
	case row.PartnerCode == "":
		return fmt.Errorf("%w: missing partner code", shared.ErrMalformedRow)
	case row.ExportFolder == "":
		return fmt.Errorf("%w: missing export folder", shared.ErrMalformedRow)
	case row.LayoutName == "":
		return fmt.Errorf("%w: missing layout name", shared.ErrMalformedRow)
	}
	return nil
}
