package migrations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const legacyOwnerUsername = "admin"

// assignOrphanRows gives every row without an owner to the admin user,
// creating that user when needed. Single-user journals are upgraded this way.
func assignOrphanRows(db *gorm.DB) error {
	var orphans int64
	for _, table := range legacyUserTables {
		var count int64
		if err := db.Table(table).Where("user_id IS NULL OR user_id = 0").Count(&count).Error; err != nil {
			return fmt.Errorf("count orphan rows in %s: %w", table, err)
		}
		orphans += count
	}

	if orphans == 0 {
		return nil
	}

	ownerID, err := ensureLegacyOwner(db)
	if err != nil {
		return fmt.Errorf("ensure legacy owner: %w", err)
	}

	for _, table := range legacyUserTables {
		if err := db.Table(table).
			Where("user_id IS NULL OR user_id = 0").
			Update("user_id", ownerID).Error; err != nil {
			return fmt.Errorf("assign orphan rows in %s: %w", table, err)
		}
	}

	return nil
}

func ensureLegacyOwner(db *gorm.DB) (uint, error) {
	var user struct {
		ID uint
	}

	err := db.Table("users").Select("id").Where("user_name = ?", legacyOwnerUsername).Take(&user).Error
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	// The owner gets no API key; one is issued with the create-user command.
	now := time.Now().UTC()
	row := map[string]interface{}{
		"user_name":   legacyOwnerUsername,
		"auth_method": "api_key",
		"is_active":   true,
		"is_admin":    true,
		"created_at":  now,
		"updated_at":  now,
	}
	if err := db.Table("users").Create(row).Error; err != nil {
		return 0, err
	}

	if err := db.Table("users").Select("id").Where("user_name = ?", legacyOwnerUsername).Take(&user).Error; err != nil {
		return 0, err
	}

	return user.ID, nil
}

// normalizeNegativeQuantities flips executions stored with the upstream
// signed-quantity convention. Direction is carried by side only.
func normalizeNegativeQuantities(db *gorm.DB) error {
	return db.Table("executions").
		Where("qty < 0").
		Update("qty", gorm.Expr("-qty")).Error
}
