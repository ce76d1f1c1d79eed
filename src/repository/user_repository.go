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

type GormUserRepository struct {
	db *gorm.DB
}

// PurgeResult counts the rows removed by PurgeUserData.
type PurgeResult struct {
	Executions      int64 `json:"executions"`
	Positions       int64 `json:"positions"`
	CompletedTrades int64 `json:"completed_trades"`
	ProcessingLogs  int64 `json:"processing_logs"`
	SetupPatterns   int64 `json:"setup_patterns"`
}

func NewUserRepository() *GormUserRepository {
	logger.WithField("component", "GormUserRepository").
		Info("Creating new GormUserRepository with MainDB")

	return &GormUserRepository{
		db: database.MainDB,
	}
}

func (r *GormUserRepository) WithDB(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "GormUserRepository",
			"op":       "Create",
			"username": user.Username,
		}).WithError(err).Error("Failed to create user")

		return err
	}

	return nil
}

// GetUserByUserName returns (nil, nil) when no user has that name.
func (r *GormUserRepository) GetUserByUserName(
	ctx context.Context,
	userName string,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("user_name = ?", userName).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// ListWithAPIKey returns every user with a stored API key hash.
func (r *GormUserRepository) ListWithAPIKey(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("api_key_hash IS NOT NULL AND api_key_hash <> ''").
		Order("id ASC").
		Find(&users).Error

	return users, err
}

// ListActive returns users flagged active, in id order.
func (r *GormUserRepository) ListActive(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&users).Error

	return users, err
}

func (r *GormUserRepository) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// SetAPIKeyHash replaces the stored API key hash of a user.
func (r *GormUserRepository) SetAPIKeyHash(ctx context.Context, userID uint, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("api_key_hash", hash).Error
}

// PurgeUserData deletes every journal row owned by the user in one
// transaction. The user row itself is kept.
func (r *GormUserRepository) PurgeUserData(ctx context.Context, userID uint) (*PurgeResult, error) {
	result := &PurgeResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		// executions reference completed trades, drop them first
		if result.Executions, err = NewExecutionRepositoryWithDB(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if result.CompletedTrades, err = NewCompletedTradeRepositoryWithDB(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if result.Positions, err = NewPositionRepositoryWithDB(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}

		res := tx.Where("user_id = ?", userID).Delete(&model.ProcessingLog{})
		if res.Error != nil {
			return res.Error
		}
		result.ProcessingLogs = res.RowsAffected

		res = tx.Where("user_id = ?", userID).Delete(&model.SetupPattern{})
		if res.Error != nil {
			return res.Error
		}
		result.SetupPatterns = res.RowsAffected

		return nil
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormUserRepository",
			"op":      "PurgeUserData",
			"user_id": userID,
		}).WithError(err).Error("Failed to purge user data")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":             "GormUserRepository",
		"op":               "PurgeUserData",
		"user_id":          userID,
		"executions":       result.Executions,
		"completed_trades": result.CompletedTrades,
		"positions":        result.Positions,
	}).Info("User data purged")

	return result, nil
}
