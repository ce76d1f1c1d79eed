package repository

import (
	"context"

	"tradejournal/src/database"
	"tradejournal/src/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SetupPatternRepository struct {
	db *gorm.DB
}

func NewSetupPatternRepository() *SetupPatternRepository {
	return &SetupPatternRepository{db: database.MainDB}
}

func (r *SetupPatternRepository) WithDB(db *gorm.DB) *SetupPatternRepository {
	return &SetupPatternRepository{db: db}
}

// Ensure registers a pattern name for the user if it is not known yet.
func (r *SetupPatternRepository) Ensure(ctx context.Context, userID uint, name string) error {
	pattern := model.SetupPattern{
		UserID:   userID,
		Name:     name,
		IsActive: true,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&pattern).Error
}

func (r *SetupPatternRepository) ListByUser(ctx context.Context, userID uint) ([]model.SetupPattern, error) {
	var patterns []model.SetupPattern
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&patterns).Error

	return patterns, err
}

func NewSetupPatternRepositoryWithDB(db *gorm.DB) *SetupPatternRepository {
	return &SetupPatternRepository{db: db}
}
