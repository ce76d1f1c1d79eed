package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// legacyUserTables are the tables created by the single-user schema before
// user ownership existed.
var legacyUserTables = []string{"executions", "positions", "completed_trades"}

// PrepareLegacyUserColumns adds a nullable user_id column to single-user
// tables so AutoMigrate can run against existing rows. Rows are assigned to
// an owner later by the 00001 data migration.
func PrepareLegacyUserColumns(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, table := range legacyUserTables {
		_, tableExists, err := lookupColumnType(db, table, "id")
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		if !tableExists {
			continue
		}

		columnType, exists, err := lookupColumnType(db, table, "user_id")
		if err != nil {
			return fmt.Errorf("inspect %s.user_id: %w", table, err)
		}

		if exists && !isNumeric(columnType) {
			return fmt.Errorf("%s.user_id has unexpected type %q", table, columnType)
		}

		if !exists {
			if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN user_id bigint", table)).Error; err != nil {
				return fmt.Errorf("add bigint user_id to %s: %w", table, err)
			}
		}
	}

	return nil
}

func lookupColumnType(db *gorm.DB, table, column string) (dataType string, exists bool, err error) {
	row := db.Raw(
		`SELECT data_type FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
		table,
		column,
	).Row()

	if scanErr := row.Scan(&dataType); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, scanErr
	}

	return dataType, true, nil
}

func isNumeric(dataType string) bool {
	dataType = strings.ToLower(dataType)
	return strings.Contains(dataType, "int") || dataType == "numeric"
}
