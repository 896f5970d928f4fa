package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/infrastructure/persistence/models"
)

// excludedPartnerCode marks the partner whose orders are invoiced
// through a separate manual process and must never enter this pipeline.
const excludedPartnerCode = "ABS"

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// invoiceReadyRow is the scan target for the eligible-order query.
// Items arrive as a JSON array aggregated per order.
type invoiceReadyRow struct {
	PurchaseOrderNumber string
	OMSOrderID          string `gorm:"column:oms_order_id"`
	ShippingCost        float64
	TrackingNumber      string
	TrackingDate        *time.Time
	Address             string
	City                string
	State               string
	Country             string
	Zip                 string
	PartnerCode         string
	PartnerName         string
	FTPFolderName       string `gorm:"column:ftp_folder_name"`
	LayoutName          string
	ItemsJSON           []byte `gorm:"column:items_json"`
}

const invoiceReadySQL = `
SELECT
    po.purchase_order_number,
    po.oms_order_id,
    po.shipping_cost,
    po.tracking_number,
    po.tracking_date,
    po.address,
    po.city,
    po.state,
    po.country,
    po.zip,
    d.code AS partner_code,
    d.name AS partner_name,
    d.ftp_folder_name,
    ff.name AS layout_name,
    COALESCE((
        SELECT json_agg(json_build_object('sku', poi.sku, 'quantity', poi.quantity) ORDER BY poi.id)
        FROM purchase_order_items AS poi
        WHERE poi.purchase_order_id = po.id
    ), '[]') AS items_json
FROM purchase_orders AS po
JOIN dropshippers AS d ON po.dropshipper_id = d.id
JOIN dropshipper_file_formats AS dff ON dff.dropshipper_id = d.id
JOIN file_formats AS ff ON ff.id = dff.format_id
WHERE po.tracking_number IS NOT NULL
  AND ff.type = 'invoice'
  AND po.is_invoiced = false
  AND d.code <> ?`

// FindInvoiceReady returns one row per eligible order with its items
// nested, using a single query so the read is a consistent snapshot.
func (r *GormOrderRepository) FindInvoiceReady(ctx context.Context, filter order.ReadFilter) ([]order.RawOrderRow, error) {
	sql := invoiceReadySQL
	args := []interface{}{excludedPartnerCode}
	if len(filter.AllowedPONumbers) > 0 {
		sql += "\n  AND po.purchase_order_number IN ?"
		args = append(args, filter.AllowedPONumbers)
	}
	sql += "\nORDER BY po.id"

	var scanned []invoiceReadyRow
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&scanned).Error; err != nil {
		return nil, fmt.Errorf("failed to query invoice-ready orders: %w", err)
	}

	rows := make([]order.RawOrderRow, 0, len(scanned))
	for _, s := range scanned {
		var items []order.RawOrderItem
		if len(s.ItemsJSON) > 0 {
			if err := json.Unmarshal(s.ItemsJSON, &items); err != nil {
				return nil, fmt.Errorf("failed to decode items for po %s: %w", s.PurchaseOrderNumber, err)
			}
		}
		rows = append(rows, order.RawOrderRow{
			PurchaseOrderNumber: s.PurchaseOrderNumber,
			OMSOrderID:          s.OMSOrderID,
			ShippingCost:        s.ShippingCost,
			TrackingNumber:      s.TrackingNumber,
			TrackingDate:        s.TrackingDate,
			Street:              s.Address,
			City:                s.City,
			State:               s.State,
			Country:             s.Country,
			PostalCode:          s.Zip,
			PartnerCode:         s.PartnerCode,
			PartnerName:         s.PartnerName,
			ExportFolder:        s.FTPFolderName,
			LayoutName:          s.LayoutName,
			Items:               items,
		})
	}
	return rows, nil
}

// SaveInvoiceID persists the accounting-system invoice id against the
// purchase order and marks it invoiced.
func (r *GormOrderRepository) SaveInvoiceID(ctx context.Context, poNumber, invoiceID string) error {
	if poNumber == "" || invoiceID == "" {
		return fmt.Errorf("po number and invoice id are required")
	}

	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("purchase_order_number = ?", poNumber).
		Updates(map[string]interface{}{
			"invoice_id":  invoiceID,
			"is_invoiced": true,
			"invoiced_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save invoice id for po %s: %w", poNumber, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no purchase order found for po %s", poNumber)
	}
	return nil
}

// FindInvoicedSince returns orders invoiced at or after the given time,
// with the normalized order id the accounting system knows them by.
func (r *GormOrderRepository) FindInvoicedSince(ctx context.Context, since time.Time) ([]order.InvoicedOrder, error) {
	var scanned []struct {
		PurchaseOrderNumber string
		PartnerCode         string
		Subtotal            float64
	}
	err := r.db.WithContext(ctx).Raw(`
SELECT po.purchase_order_number, d.code AS partner_code, po.subtotal
FROM purchase_orders AS po
JOIN dropshippers AS d ON po.dropshipper_id = d.id
WHERE po.is_invoiced = true
  AND po.invoiced_at >= ?
ORDER BY po.id`, since).Scan(&scanned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query invoiced orders: %w", err)
	}

	invoiced := make([]order.InvoicedOrder, 0, len(scanned))
	for _, s := range scanned {
		invoiced = append(invoiced, order.InvoicedOrder{
			OrderID:  order.NormalizeOrderID(s.PartnerCode, s.PurchaseOrderNumber),
			Subtotal: s.Subtotal,
		})
	}
	return invoiced, nil
}

// Ensure GormOrderRepository implements the repository interface
var _ order.Repository = (*GormOrderRepository)(nil)
