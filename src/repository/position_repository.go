package repository

import (
	"context"
	"errors"

	"tradejournal/src/database"
	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PositionRepository persists the running position per instrument.
type PositionRepository struct {
	db *gorm.DB
}

// PositionSearchOptions narrows position listings. UserID is mandatory.
type PositionSearchOptions struct {
	UserID   uint
	Symbol   *string
	OpenOnly bool
}

func NewPositionRepository() *PositionRepository {
	logger.WithField("component", "PositionRepository").
		Info("Creating new PositionRepository with MainDB")

	return &PositionRepository{
		db: database.MainDB,
	}
}

func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindByIdentity returns (nil, nil) when no position exists yet.
func (r *PositionRepository) FindByIdentity(
	ctx context.Context,
	userID uint,
	symbol string,
	instrumentType string,
	optionKey string,
) (*model.Position, error) {

	var pos model.Position
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ? AND instrument_type = ? AND option_key = ?",
			userID, symbol, instrumentType, optionKey).
		First(&pos).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &pos, nil
}

// Upsert writes the position keyed on (user, symbol, instrument type,
// option key), inserting it when absent and updating it in place otherwise.
func (r *PositionRepository) Upsert(ctx context.Context, pos *model.Position) error {
	row := *pos
	row.ID = 0

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "symbol"},
				{Name: "instrument_type"},
				{Name: "option_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"current_qty",
				"avg_cost_basis",
				"total_cost",
				"realized_pnl",
				"opened_at",
				"closed_at",
				"updated_at",
			}),
		}).
		Create(&row).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "Upsert",
			"user_id": pos.UserID,
			"symbol":  pos.Symbol,
		}).WithError(err).Error("Failed to upsert position")

		return err
	}

	if pos.ID == 0 {
		pos.ID = row.ID
	}
	// keep the caller's copy equal to what was stored
	pos.AvgCostBasis = row.AvgCostBasis
	pos.TotalCost = row.TotalCost
	pos.RealizedPnl = row.RealizedPnl

	return nil
}

// Search lists the positions of one user by symbol.
func (r *PositionRepository) Search(
	ctx context.Context,
	options PositionSearchOptions,
) ([]model.Position, error) {

	query := r.db.WithContext(ctx).Where("user_id = ?", options.UserID)

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}

	if options.OpenOnly {
		query = query.Where("current_qty <> 0")
	}

	var positions []model.Position
	if err := query.Order("symbol ASC, option_key ASC").Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

// DeleteByUser removes every position of a user.
func (r *PositionRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Position{})
	return res.RowsAffected, res.Error
}

func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}
