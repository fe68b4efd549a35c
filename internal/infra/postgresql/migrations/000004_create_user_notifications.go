package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"gorm.io/gorm"
)

func createUserNotificationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_user_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.UserNotificationModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_user_notifications_username_created ON user_notifications (username, created_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.UserNotificationModel{})
		},
	}
}
