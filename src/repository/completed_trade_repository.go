package repository

import (
	"context"
	"errors"
	"time"

	"tradejournal/src/database"
	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CompletedTradeRepository handles completed round trips.
type CompletedTradeRepository struct {
	db *gorm.DB
}

// CompletedTradeSearchOptions narrows completed trade listings. UserID is mandatory.
type CompletedTradeSearchOptions struct {
	UserID       uint
	Symbol       *string
	ClosedAfter  *time.Time
	ClosedBefore *time.Time
	WinnersOnly  bool
	LosersOnly   bool
	Limit        int
	Offset       int
}

func NewCompletedTradeRepository() *CompletedTradeRepository {
	logger.WithField("component", "CompletedTradeRepository").
		Info("Creating new CompletedTradeRepository with MainDB")

	return &CompletedTradeRepository{
		db: database.MainDB,
	}
}

// NewCompletedTradeReadRepository reads from the replica when one is configured.
func NewCompletedTradeReadRepository() *CompletedTradeRepository {
	logger.WithField("component", "CompletedTradeRepository").
		Info("Creating new CompletedTradeRepository with ReadOnlyDB")

	return &CompletedTradeRepository{
		db: database.ReadOnlyDB,
	}
}

func (r *CompletedTradeRepository) WithDB(db *gorm.DB) *CompletedTradeRepository {
	return &CompletedTradeRepository{db: db}
}

// Create inserts a completed trade. Executions are linked separately.
func (r *CompletedTradeRepository) Create(ctx context.Context, trade *model.CompletedTrade) error {
	err := r.db.WithContext(ctx).
		Omit("Executions").
		Create(trade).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "CompletedTradeRepository",
			"op":      "Create",
			"user_id": trade.UserID,
			"symbol":  trade.Symbol,
		}).WithError(err).Error("Failed to create completed trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "CompletedTradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
		"net_pnl":  trade.NetPnl.String(),
	}).Debug("Completed trade created")

	return nil
}

// FindByID returns (nil, nil) when the trade does not exist or belongs to
// another user.
func (r *CompletedTradeRepository) FindByID(
	ctx context.Context,
	userID uint,
	id uint,
) (*model.CompletedTrade, error) {

	var trade model.CompletedTrade
	err := r.db.WithContext(ctx).
		Preload("Executions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exec_timestamp ASC, id ASC")
		}).
		Where("user_id = ? AND id = ?", userID, id).
		First(&trade).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &trade, nil
}

// Search lists completed trades of one user ordered by close time.
func (r *CompletedTradeRepository) Search(
	ctx context.Context,
	options CompletedTradeSearchOptions,
) ([]model.CompletedTrade, error) {

	query := r.db.WithContext(ctx).Where("user_id = ?", options.UserID)

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}

	if options.ClosedAfter != nil {
		query = query.Where("closed_at >= ?", *options.ClosedAfter)
	}

	if options.ClosedBefore != nil {
		query = query.Where("closed_at <= ?", *options.ClosedBefore)
	}

	if options.WinnersOnly {
		query = query.Where("is_winning_trade = ?", true)
	} else if options.LosersOnly {
		query = query.Where("is_winning_trade = ?", false)
	}

	query = query.Order("closed_at ASC, id ASC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}

	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var trades []model.CompletedTrade
	if err := query.Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "CompletedTradeRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to search completed trades")

		return nil, err
	}

	return trades, nil
}

// UpdateAnnotation sets the setup pattern and notes of a trade. Nil
// arguments leave the column untouched. It returns gorm.ErrRecordNotFound
// when the user does not own the trade.
func (r *CompletedTradeRepository) UpdateAnnotation(
	ctx context.Context,
	userID uint,
	id uint,
	setupPattern *string,
	notes *string,
) error {

	updates := map[string]interface{}{}
	if setupPattern != nil {
		updates["setup_pattern"] = *setupPattern
	}
	if notes != nil {
		updates["trade_notes"] = *notes
	}

	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.CompletedTrade{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DeleteByUser removes every completed trade of a user.
func (r *CompletedTradeRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CompletedTrade{})
	return res.RowsAffected, res.Error
}

func NewCompletedTradeRepositoryWithDB(db *gorm.DB) *CompletedTradeRepository {
	return &CompletedTradeRepository{db: db}
}
