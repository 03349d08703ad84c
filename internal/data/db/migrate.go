package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(learning.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
