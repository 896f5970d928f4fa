// Package models holds the GORM persistence models for the invoicing
// schema. Identifiers are plain auto-increment integers; the tables
// predate this service and are shared with the order importer.
package models

import "time"

// Dropshipper is one partner whose orders we invoice.
type Dropshipper struct {
	ID            int64  `gorm:"primaryKey"`
	Code          string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name          string `gorm:"type:varchar(200);not null"`
	FTPFolderName string `gorm:"column:ftp_folder_name;type:varchar(100);not null"`
}

func (Dropshipper) TableName() string {
	return "dropshippers"
}

// FileFormat names one export layout. Type distinguishes invoice
// layouts from the importer's order layouts sharing the table.
type FileFormat struct {
	ID      int64              `gorm:"primaryKey"`
	Name    string             `gorm:"type:varchar(100);not null"`
	Type    string             `gorm:"type:varchar(50);not null;index"`
	Details []FileFormatDetail `gorm:"foreignKey:FormatID"`
}

func (FileFormat) TableName() string {
	return "file_formats"
}

// FileFormatDetail is one column of an export layout, in declared order.
type FileFormatDetail struct {
	ID         int64  `gorm:"primaryKey"`
	FormatID   int64  `gorm:"not null;index"`
	HeaderName string `gorm:"type:varchar(100);not null"`
	Position   int    `gorm:"not null"`
}

func (FileFormatDetail) TableName() string {
	return "file_format_details"
}

// DropshipperFileFormat assigns a layout to a dropshipper.
type DropshipperFileFormat struct {
	ID            int64 `gorm:"primaryKey"`
	DropshipperID int64 `gorm:"not null;index"`
	FormatID      int64 `gorm:"not null;index"`
}

func (DropshipperFileFormat) TableName() string {
	return "dropshipper_file_formats"
}

// PurchaseOrder is one partner-issued order. InvoiceID and IsInvoiced
// are written by this service; everything else by the order importer.
type PurchaseOrder struct {
	ID                  int64  `gorm:"primaryKey"`
	PurchaseOrderNumber string `gorm:"type:varchar(50);not null;uniqueIndex"`
	OMSOrderID          string `gorm:"column:oms_order_id;type:varchar(50)"`
	DropshipperID       int64  `gorm:"not null;index"`
	ShippingCost        float64
	Subtotal            float64
	TrackingNumber      *string `gorm:"type:varchar(100)"`
	TrackingDate        *time.Time
	Address             string `gorm:"type:varchar(500)"`
	City                string `gorm:"type:varchar(100)"`
	State               string `gorm:"type:varchar(10)"`
	Country             string `gorm:"type:varchar(2)"`
	Zip                 string `gorm:"type:varchar(20)"`
	InvoiceID           string `gorm:"type:varchar(50)"`
	IsInvoiced          bool   `gorm:"not null;default:false;index"`
	InvoicedAt          *time.Time
	Items               []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem is one line of a purchase order.
type PurchaseOrderItem struct {
	ID              int64  `gorm:"primaryKey"`
	PurchaseOrderID int64  `gorm:"not null;index"`
	SKU             string `gorm:"type:varchar(100);not null"`
	Quantity        int    `gorm:"not null"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// RunLog records one pipeline run's outcome for operational monitoring.
type RunLog struct {
	ID              int64  `gorm:"primaryKey"`
	ProcessName     string `gorm:"type:varchar(100);not null;index"`
	Status          string `gorm:"type:varchar(20);not null"`
	Detail          string `gorm:"type:text"`
	DurationSeconds float64
	CreatedAt       time.Time `gorm:"not null"`
}

func (RunLog) TableName() string {
	return "run_logs"
}
