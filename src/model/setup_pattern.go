package model

import "time"

// SetupPattern is a named trade setup used to tag completed trades.
type SetupPattern struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_setup_pattern_name" json:"user_id"`
	Name        string    `gorm:"size:50;not null;uniqueIndex:idx_setup_pattern_name" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"size:30" json:"category,omitempty"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SetupPattern) TableName() string {
	return "setup_patterns"
}
