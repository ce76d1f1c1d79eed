package repository

import (
	"context"

	"tradejournal/src/database"
	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProcessingLogRepository stores the audit trail of ingestion runs.
type ProcessingLogRepository struct {
	db *gorm.DB
}

func NewProcessingLogRepository() *ProcessingLogRepository {
	return &ProcessingLogRepository{db: database.MainDB}
}

func (r *ProcessingLogRepository) WithDB(db *gorm.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

func (r *ProcessingLogRepository) Create(ctx context.Context, entry *model.ProcessingLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ProcessingLogRepository",
			"op":     "Create",
			"run_id": entry.RunID,
		}).WithError(err).Error("Failed to create processing log")
	}
	return err
}

// Finish stores the final counters and status of a run.
func (r *ProcessingLogRepository) Finish(ctx context.Context, entry *model.ProcessingLog) error {
	return r.db.WithContext(ctx).
		Model(&model.ProcessingLog{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"completed_at":      entry.CompletedAt,
			"records_processed": entry.RecordsProcessed,
			"records_failed":    entry.RecordsFailed,
			"status":            entry.Status,
			"error_message":     entry.ErrorMessage,
		}).Error
}

// ListByUser returns the most recent runs of a user first.
func (r *ProcessingLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ProcessingLog, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []model.ProcessingLog
	err := query.Find(&entries).Error
	return entries, err
}

func NewProcessingLogRepositoryWithDB(db *gorm.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}
