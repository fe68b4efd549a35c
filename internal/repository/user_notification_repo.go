package repository

import (
	"context"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"gorm.io/gorm"
)

type UserNotificationRepository interface {
	Create(ctx context.Context, n *domain.UserNotification) error
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.UserNotification, error)
}

type GormUserNotificationRepo struct {
	db *gorm.DB
}

func NewGormUserNotificationRepo(db *gorm.DB) *GormUserNotificationRepo {
	return &GormUserNotificationRepo{db: db}
}

func (r *GormUserNotificationRepo) Create(ctx context.Context, n *domain.UserNotification) error {
	model := userNotificationModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *userNotificationModelToDomain(model)
	}
	return nil
}

func (r *GormUserNotificationRepo) ListByUsername(ctx context.Context, username string, limit int) ([]domain.UserNotification, error) {
	if limit < 1 {
		limit = 50
	}
	limit = min(limit, 200)

	var models []UserNotificationModel
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.UserNotification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *userNotificationModelToDomain(&models[i]))
	}

	return notifications, nil
}
