package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dropship/invoicer/internal/application/export"
	"github.com/dropship/invoicer/internal/infrastructure/persistence/models"
)

// GormLayoutRepository implements export.LayoutSource using GORM
type GormLayoutRepository struct {
	db *gorm.DB
}

// NewGormLayoutRepository creates a new GormLayoutRepository
func NewGormLayoutRepository(db *gorm.DB) *GormLayoutRepository {
	return &GormLayoutRepository{db: db}
}

// InvoiceLayouts returns {layout name: [column, ...]} for every invoice
// layout, columns in declared order.
func (r *GormLayoutRepository) InvoiceLayouts(ctx context.Context) (map[string][]string, error) {
	var formats []models.FileFormat
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where("type = ?", "invoice").
		Order("name").
		Find(&formats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice layouts: %w", err)
	}

	layouts := make(map[string][]string, len(formats))
	for _, format := range formats {
		columns := make([]string, 0, len(format.Details))
		for _, detail := range format.Details {
			columns = append(columns, detail.HeaderName)
		}
		layouts[format.Name] = columns
	}
	return layouts, nil
}

// Ensure GormLayoutRepository implements the layout source interface
var _ export.LayoutSource = (*GormLayoutRepository)(nil)
