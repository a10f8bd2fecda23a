package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Group order documents (one row per session)
		&types.Record{},
	)
}
