// Package bootstrap assembles the delivery path and the lifecycle services
// shared by the API and worker processes from configuration.
package bootstrap

import (
	"fmt"

	"github.com/kursadbilgin/housing-engine/internal/config"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	infraredis "github.com/kursadbilgin/housing-engine/internal/infra/redis"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/provider"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"github.com/kursadbilgin/housing-engine/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewTransport builds the configured email transport. It returns nil when
// email is disabled; the gateway then records sends without attempting them.
func NewTransport(cfg *config.Config) (provider.Transport, error) {
	if !cfg.EmailEnabled {
		return nil, nil
	}

	if cfg.EmailTransport == config.TransportRelay {
		relay, err := provider.NewRelayTransport(cfg.MailRelayURL, cfg.SMTPFrom, cfg.SMTPTimeout)
		if err != nil {
			return nil, err
		}
		return relay, nil
	}

	settings := cfg.SMTPSettings()
	if settings == nil {
		return nil, domain.NewDeliveryError(domain.DeliveryNoSettings, "EMAIL_ENABLED requires SMTP settings")
	}
	smtp, err := provider.NewSMTPTransport(*settings, cfg.SMTPTimeout)
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

// NewDeliveryGateway wires the transport, the redis send throttle and the
// audit repository into a DeliveryGateway.
func NewDeliveryGateway(
	cfg *config.Config,
	audits repository.UserNotificationRepository,
	rdb *goredis.Client,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*service.DeliveryGateway, error) {
	settings, err := cfg.DeliverySettings()
	if err != nil {
		return nil, err
	}
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build email transport: %w", err)
	}

	gateway, err := service.NewDeliveryGateway(settings, transport, audits, cfg.EmailEnabled, logger)
	if err != nil {
		return nil, err
	}
	gateway.SetMetrics(metrics)
	if rdb != nil {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.EmailRateLimitPerSec)
		if err != nil {
			return nil, err
		}
		gateway.SetRateLimiter(limiter)
	}

	return gateway, nil
}
