package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"gorm.io/gorm"
)

func createNotificationConfigsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notification_configs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationConfigModel{}); err != nil {
				return err
			}
			// (category_cd, title) is unique among active rows only.
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_configs_active_key ON notification_configs (category_cd, title) WHERE active_ind`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationConfigModel{})
		},
	}
}
