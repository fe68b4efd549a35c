package repository

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"gorm.io/gorm"
)

type NotificationConfigRepository interface {
	GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error)
}

type GormNotificationConfigRepo struct {
	db *gorm.DB
}

func NewGormNotificationConfigRepo(db *gorm.DB) *GormNotificationConfigRepo {
	return &GormNotificationConfigRepo{db: db}
}

// GetActive returns the single active config for (category, title). Both
// keys match exactly. No row is domain.ErrNotFound; more than one active row
// is domain.ErrConflict rather than an arbitrary pick.
func (r *GormNotificationConfigRepo) GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
	var models []NotificationConfigModel
	err := r.db.WithContext(ctx).
		Where("category_cd = ? AND title = ? AND active_ind = ?", category, title, true).
		Order("id ASC").
		Limit(2).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	switch len(models) {
	case 0:
		return nil, fmt.Errorf("%w: no active notification config for %s/%q", domain.ErrNotFound, category, title)
	case 1:
		return notificationConfigModelToDomain(&models[0]), nil
	default:
		return nil, fmt.Errorf("%w: multiple active notification configs for %s/%q", domain.ErrConflict, category, title)
	}
}
