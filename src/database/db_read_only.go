package database

import (
	"fmt"

	"tradejournal/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReadOnlyDB serves reporting queries (dashboard, summaries). When no
// replica URL is configured it points at MainDB.
// The database user for a replica should have SELECT-only permissions.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()

	if config.DatabaseURLReadOnly == "" || config.Driver == DriverSQLite {
		if MainDB == nil {
			return fmt.Errorf("no read-only URL configured and MainDB is not initialized")
		}
		ReadOnlyDB = MainDB
		logrus.Info("[ReadOnlyDB] no replica configured, using MainDB")
		return nil
	}

	db, err := Open(config, config.DatabaseURLReadOnly)
	if err != nil {
		return fmt.Errorf("failed to connect to ReadOnlyDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	// Test if the replica really carries the journal schema.
	var count int64
	if err := db.Model(&model.CompletedTrade{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access completed_trades: %w", err)
	}

	logrus.WithFields(map[string]interface{}{"count": count}).Info("[ReadOnlyDB] completed_trades reachable")

	ReadOnlyDB = db

	return nil
}
