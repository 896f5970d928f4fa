package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dropship/invoicer/internal/application/pipeline"
	"github.com/dropship/invoicer/internal/infrastructure/persistence/models"
)

// GormRunLogRepository implements pipeline.RunRecorder using GORM
type GormRunLogRepository struct {
	db          *gorm.DB
	processName string
}

// NewGormRunLogRepository creates a new GormRunLogRepository
func NewGormRunLogRepository(db *gorm.DB, processName string) *GormRunLogRepository {
	return &GormRunLogRepository{db: db, processName: processName}
}

// RecordRun appends one run-outcome row.
func (r *GormRunLogRepository) RecordRun(ctx context.Context, status, detail string, duration time.Duration) error {
	entry := models.RunLog{
		ProcessName:     r.processName,
		Status:          status,
		Detail:          detail,
		DurationSeconds: duration.Seconds(),
		CreatedAt:       time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record run for %s: %w", r.processName, err)
	}
	return nil
}

// Ensure GormRunLogRepository implements the run recorder interface
var _ pipeline.RunRecorder = (*GormRunLogRepository)(nil)
