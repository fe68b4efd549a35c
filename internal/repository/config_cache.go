package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultConfigCacheTTL  = 5 * time.Minute
	configCacheKeyTemplate = "notification-config:%s:%s"
)

var _ NotificationConfigRepository = (*CachedNotificationConfigRepo)(nil)

// CachedNotificationConfigRepo is a read-through redis cache in front of a
// NotificationConfigRepository. Only successful lookups are cached, so a
// config that is missing now is visible as soon as it is created. Redis
// failures fall back to the underlying repository.
type CachedNotificationConfigRepo struct {
	next   NotificationConfigRepository
	client goredis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedNotificationConfigRepo(
	next NotificationConfigRepository,
	client goredis.Cmdable,
	ttl time.Duration,
	logger *zap.Logger,
) (*CachedNotificationConfigRepo, error) {
	if next == nil {
		return nil, fmt.Errorf("notification config repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultConfigCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedNotificationConfigRepo{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (r *CachedNotificationConfigRepo) GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := configCacheKey(category, title)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cfg domain.NotificationConfig
		decodeErr := json.Unmarshal(raw, &cfg)
		if decodeErr == nil {
			return &cfg, nil
		}
		r.logger.Warn("discarding undecodable cached notification config",
			zap.String("key", key),
			zap.Error(decodeErr),
		)
	case !errors.Is(err, goredis.Nil):
		r.logger.Warn("notification config cache read failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	cfg, err := r.next.GetActive(ctx, category, title)
	if err != nil {
		return nil, err
	}

	if encoded, encodeErr := json.Marshal(cfg); encodeErr == nil {
		if setErr := r.client.Set(ctx, key, encoded, r.ttl).Err(); setErr != nil {
			r.logger.Warn("notification config cache write failed",
				zap.String("key", key),
				zap.Error(setErr),
			)
		}
	}

	return cfg, nil
}

// Invalidate drops the cached entry for (category, title).
func (r *CachedNotificationConfigRepo) Invalidate(ctx context.Context, category domain.Category, title string) error {
	return r.client.Del(ctx, configCacheKey(category, title)).Err()
}

func configCacheKey(category domain.Category, title string) string {
	return fmt.Sprintf(configCacheKeyTemplate, category, title)
}
