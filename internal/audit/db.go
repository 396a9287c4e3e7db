package audit

import (
	"context"
	"fmt"

	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/models"
	"gorm.io/gorm"
)

// DBRecorder persists cache-clear audits to postgres. Health run summaries
// are already durably represented by the per-tenant result rows, so it only
// records the clear events.
type DBRecorder struct {
	db *gorm.DB
}

func NewDBRecorder(db *gorm.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

func (r *DBRecorder) RecordCacheClear(ctx context.Context, rec models.CacheClearAudit) error {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("saving cache clear audit: %w", err)
	}
	return nil
}

func (r *DBRecorder) RecordHealthRun(ctx context.Context, summary health.Summary) error {
	return nil
}
