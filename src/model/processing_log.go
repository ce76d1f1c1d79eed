package model

import "time"

const (
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusPartial    = "partial"
	ProcessingStatusFailed     = "failed"
)

// ProcessingLog is the audit trail of one ingestion run over one file.
type ProcessingLog struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	RunID  string `gorm:"size:36;not null;index" json:"run_id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`

	FilePath string `gorm:"type:text;not null" json:"file_path"`

	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsFailed    int        `json:"records_failed"`

	Status       string `gorm:"size:20;not null;index" json:"status"` // see ProcessingStatus* constants
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (ProcessingLog) TableName() string {
	return "processing_logs"
}
