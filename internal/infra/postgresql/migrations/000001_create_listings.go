package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"gorm.io/gorm"
)

func createListingsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_listings",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ListingModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ListingModel{})
		},
	}
}
