package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradejournal/src/database"
	"tradejournal/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExecutionRepository handles read/write operations for executions (fills).
type ExecutionRepository struct {
	db *gorm.DB
}

// ExecutionSearchOptions narrows execution listings. UserID is mandatory.
type ExecutionSearchOptions struct {
	UserID        uint
	Symbol        *string
	UnlinkedOnly  bool
	ExecutedAfter *time.Time
	Limit         int
	Offset        int
}

// NewExecutionRepository creates a new repository instance using the main read/write database.
func NewExecutionRepository() *ExecutionRepository {
	logger.WithField("component", "ExecutionRepository").
		Info("Creating new ExecutionRepository with MainDB")

	return &ExecutionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *ExecutionRepository) WithDB(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Upsert inserts the execution or, when (user_id, unique_key) already exists
// and the row is not yet linked to a completed trade, refreshes its source
// fields. It returns the stored row and whether it was newly created.
func (r *ExecutionRepository) Upsert(
	ctx context.Context,
	exec *model.Execution,
) (*model.Execution, bool, error) {

	fields := map[string]interface{}{
		"repo":       "ExecutionRepository",
		"op":         "Upsert",
		"user_id":    exec.UserID,
		"unique_key": exec.UniqueKey,
	}

	existing, err := r.FindByUniqueKey(ctx, exec.UserID, exec.UniqueKey)
	if err != nil {
		return nil, false, err
	}

	row := *exec
	row.ID = 0

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "unique_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"exec_timestamp",
				"price",
				"net_price",
				"source_file",
				"source_row",
				"raw_data",
				"updated_at",
			}),
			// linked fills are immutable
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "executions.completed_trade_id IS NULL"},
			}},
		}).
		Create(&row).Error
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to upsert execution")
		return nil, false, err
	}

	stored, err := r.FindByUniqueKey(ctx, exec.UserID, exec.UniqueKey)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("execution %q vanished after upsert", exec.UniqueKey)
	}

	logger.WithFields(fields).WithField("execution_id", stored.ID).Debug("Execution upserted")

	return stored, existing == nil, nil
}

// FindByUniqueKey returns (nil, nil) if the execution is not found.
func (r *ExecutionRepository) FindByUniqueKey(
	ctx context.Context,
	userID uint,
	uniqueKey string,
) (*model.Execution, error) {

	var exec model.Execution
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND unique_key = ?", userID, uniqueKey).
		First(&exec).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &exec, nil
}

// FindUnlinkedFills returns the fills of a user not yet consumed by a
// completed trade, oldest first.
func (r *ExecutionRepository) FindUnlinkedFills(
	ctx context.Context,
	userID uint,
	symbol *string,
) ([]model.Execution, error) {

	return r.Search(ctx, ExecutionSearchOptions{
		UserID:       userID,
		Symbol:       symbol,
		UnlinkedOnly: true,
	})
}

// FindFills returns every fill of a user in chronological order.
func (r *ExecutionRepository) FindFills(
	ctx context.Context,
	userID uint,
) ([]model.Execution, error) {

	return r.Search(ctx, ExecutionSearchOptions{UserID: userID})
}

// Search lists fills of one user ordered by execution time.
func (r *ExecutionRepository) Search(
	ctx context.Context,
	options ExecutionSearchOptions,
) ([]model.Execution, error) {

	query := r.db.WithContext(ctx).
		Where("user_id = ?", options.UserID).
		Where("event_type = ?", model.EventTypeFill)

	if options.UnlinkedOnly {
		query = query.Where("completed_trade_id IS NULL")
	}

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}

	if options.ExecutedAfter != nil {
		query = query.Where("exec_timestamp >= ?", *options.ExecutedAfter)
	}

	query = query.Order("exec_timestamp ASC, id ASC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}

	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var executions []model.Execution
	if err := query.Find(&executions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ExecutionRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to search executions")

		return nil, err
	}

	return executions, nil
}

// LinkToCompletedTrade sets completed_trade_id on every given execution.
// Executions already linked, or owned by another user, are not touched and
// make the call fail.
func (r *ExecutionRepository) LinkToCompletedTrade(
	ctx context.Context,
	userID uint,
	executionIDs []uint,
	completedTradeID uint,
) error {

	if len(executionIDs) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.Execution{}).
		Where("user_id = ? AND id IN ? AND completed_trade_id IS NULL", userID, executionIDs).
		Update("completed_trade_id", completedTradeID)

	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected != int64(len(executionIDs)) {
		return fmt.Errorf("linked %d of %d executions to completed trade %d",
			res.RowsAffected, len(executionIDs), completedTradeID)
	}

	return nil
}

// SetRealizedPnl stores the realized P&L computed for a closing fill.
// Fills already linked to a completed trade keep their value.
func (r *ExecutionRepository) SetRealizedPnl(
	ctx context.Context,
	executionID uint,
	pnl decimal.Decimal,
) error {

	return r.db.WithContext(ctx).
		Model(&model.Execution{}).
		Where("id = ? AND completed_trade_id IS NULL", executionID).
		Update("realized_pnl", decimal.NullDecimal{Decimal: model.RoundMoney(pnl), Valid: true}).Error
}

// ClearRealizedPnl resets realized_pnl on the user's fills that are not
// linked to a completed trade yet. Linked fills are never rewritten.
func (r *ExecutionRepository) ClearRealizedPnl(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Execution{}).
		Where("user_id = ? AND completed_trade_id IS NULL", userID).
		Update("realized_pnl", gorm.Expr("NULL")).Error
}

// DeleteByUser removes every execution of a user.
func (r *ExecutionRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Execution{})
	return res.RowsAffected, res.Error
}

// NewExecutionRepositoryWithDB binds the repository to a specific session or transaction.
func NewExecutionRepositoryWithDB(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}
