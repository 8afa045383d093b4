package persistence

import (
	"fmt"

	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the ledger schema from the GORM models. Production
// databases are migrated with the SQL files under migrations/; this is used
// for SQLite test databases and local experiments.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	for _, stmt := range models.UniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create unique index: %w", err)
		}
	}
	return nil
}
