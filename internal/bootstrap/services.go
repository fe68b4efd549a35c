package bootstrap

import (
	"errors"

	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/config"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"github.com/kursadbilgin/housing-engine/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services groups the application-facing services built over one database.
type Services struct {
	Lifecycle     *service.LifecycleService
	Notifications *service.NotificationService
}

// NewServices builds the notification service over the given sender and the
// lifecycle service on top of it. Notification configs are read through the
// redis cache.
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	rdb *goredis.Client,
	sender service.Sender,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Services, error) {
	if rdb == nil {
		return nil, errors.New("bootstrap: redis client is required")
	}

	configs, err := repository.NewCachedNotificationConfigRepo(
		repository.NewGormNotificationConfigRepo(db),
		rdb,
		cfg.NotificationConfigCacheTTL,
		logger,
	)
	if err != nil {
		return nil, err
	}

	messages, err := composer.NewComposer(configs, logger)
	if err != nil {
		return nil, err
	}

	notifications, err := service.NewNotificationService(
		messages,
		sender,
		repository.NewGormUserNotificationRepo(db),
		logger,
	)
	if err != nil {
		return nil, err
	}

	lifecycle, err := service.NewLifecycleService(
		repository.NewGormApplicationRepo(db),
		repository.NewGormListingRepo(db),
		notifications,
		cfg.DuplicateResponseWindow,
		logger,
	)
	if err != nil {
		return nil, err
	}
	lifecycle.SetMetrics(metrics)

	return &Services{Lifecycle: lifecycle, Notifications: notifications}, nil
}
