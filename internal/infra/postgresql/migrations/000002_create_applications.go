package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"gorm.io/gorm"
)

func createApplicationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_applications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ApplicationModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_applications_listing_status ON applications (listing_id, status_cd)`,
				`CREATE INDEX IF NOT EXISTS idx_applications_duplicate_due ON applications (duplicate_check_response_due_date) WHERE duplicate_check_cd = 'P'`,
				`ALTER TABLE applications ADD CONSTRAINT chk_applications_due_date
					CHECK ((duplicate_check_response_due_date IS NOT NULL) = (duplicate_check_cd IS NOT DISTINCT FROM 'P'))`,
				`ALTER TABLE applications ADD CONSTRAINT chk_applications_withdrawn_date
					CHECK ((withdrawn_date IS NOT NULL) = (status_cd = 'WITHDRAWN'))`,
				`ALTER TABLE applications ADD CONSTRAINT chk_applications_submitted_date
					CHECK (status_cd = 'WITHDRAWN' OR (submitted_date IS NULL) = (status_cd = 'DRAFT'))`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ApplicationModel{})
		},
	}
}
