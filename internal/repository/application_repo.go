package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MutateFunc changes an application loaded under a row lock. Returning an
// error aborts the update and nothing is written.
type MutateFunc func(app *domain.ApplicationRecord) error

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.ApplicationRecord) error
	GetByID(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	Update(ctx context.Context, id int64, mutate MutateFunc) (*domain.ApplicationRecord, error)
	ListActiveByListing(ctx context.Context, listingID int64) ([]domain.ApplicationRecord, error)
	ListOverdueDuplicateChecks(ctx context.Context, now time.Time, limit int) ([]domain.ApplicationRecord, error)
}

type GormApplicationRepo struct {
	db *gorm.DB
}

func NewGormApplicationRepo(db *gorm.DB) *GormApplicationRepo {
	return &GormApplicationRepo{db: db}
}

func (r *GormApplicationRepo) Create(ctx context.Context, app *domain.ApplicationRecord) error {
	model := applicationModelFromDomain(app)
	if model == nil {
		return fmt.Errorf("%w: application is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	created, err := applicationModelToDomain(model)
	if err != nil {
		return err
	}
	*app = *created
	return nil
}

func (r *GormApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return applicationModelToDomain(&model)
}

// Update loads the application with SELECT ... FOR UPDATE, applies mutate and
// writes the result in the same transaction, so concurrent transitions on one
// application are serialized by the row lock.
func (r *GormApplicationRepo) Update(ctx context.Context, id int64, mutate MutateFunc) (*domain.ApplicationRecord, error) {
	var updated *domain.ApplicationRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ApplicationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		app, err := applicationModelToDomain(&model)
		if err != nil {
			return err
		}
		if err := mutate(app); err != nil {
			return err
		}

		next := applicationModelFromDomain(app)
		if err := tx.Save(next).Error; err != nil {
			return err
		}

		updated, err = applicationModelToDomain(next)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *GormApplicationRepo) ListActiveByListing(ctx context.Context, listingID int64) ([]domain.ApplicationRecord, error) {
	var models []ApplicationModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND status_cd NOT IN ?", listingID, []domain.Status{domain.StatusWithdrawn, domain.StatusDuplicate}).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return applicationsToDomain(models)
}

func (r *GormApplicationRepo) ListOverdueDuplicateChecks(ctx context.Context, now time.Time, limit int) ([]domain.ApplicationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var models []ApplicationModel
	err := r.db.WithContext(ctx).
		Where("duplicate_check_cd = ? AND duplicate_check_response_due_date <= ?", domain.DuplicateCheckPotential.String(), now).
		Order("duplicate_check_response_due_date ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return applicationsToDomain(models)
}

func applicationsToDomain(models []ApplicationModel) ([]domain.ApplicationRecord, error) {
	apps := make([]domain.ApplicationRecord, 0, len(models))
	for i := range models {
		app, err := applicationModelToDomain(&models[i])
		if err != nil {
			return nil, fmt.Errorf("application %d: %w", models[i].ID, err)
		}
		apps = append(apps, *app)
	}
	return apps, nil
}
