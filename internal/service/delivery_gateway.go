package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/provider"
	"github.com/kursadbilgin/housing-engine/internal/ratelimit"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	auditWriteTimeout    = 5 * time.Second
	disabledTransportTag = "disabled"
)

// EmailGateway is the single entry point for sending one email.
type EmailGateway interface {
	SendEmail(ctx context.Context, msg domain.Message) error
}

var _ EmailGateway = (*DeliveryGateway)(nil)

// DeliveryGateway validates a message and the mail settings, hands the
// message to the transport when sending is enabled, and records an audit
// row for every message that carries a notification body, whatever the
// delivery outcome.
type DeliveryGateway struct {
	settings  *domain.SMTPSettings
	transport provider.Transport
	audits    repository.UserNotificationRepository
	limiter   ratelimit.RateLimiter
	enabled   bool
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewDeliveryGateway(
	settings *domain.SMTPSettings,
	transport provider.Transport,
	audits repository.UserNotificationRepository,
	enabled bool,
	logger *zap.Logger,
) (*DeliveryGateway, error) {
	if audits == nil {
		return nil, errors.New("delivery gateway: user notification repository is required")
	}
	if enabled && transport == nil {
		return nil, errors.New("delivery gateway: transport is required when email is enabled")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryGateway{
		settings:  settings,
		transport: transport,
		audits:    audits,
		enabled:   enabled,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (g *DeliveryGateway) SetMetrics(metrics *observability.Metrics) {
	if g == nil {
		return
	}
	g.metrics = metrics
}

// SetRateLimiter puts a send throttle in front of the transport.
func (g *DeliveryGateway) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if g == nil {
		return
	}
	g.limiter = limiter
}

// SendEmail returns nil when the message was sent or deliberately
// suppressed, and a *domain.DeliveryError otherwise. Audit persistence
// failures are logged and never change the returned outcome.
func (g *DeliveryGateway) SendEmail(ctx context.Context, msg domain.Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(g.logger, ctx).With(
		zap.String("subject", msg.Subject),
		zap.String("username", msg.Username),
	)

	sent, derr := g.deliver(ctx, &msg, logger)

	if msg.HasAudit() {
		g.recordAudit(ctx, msg, sent, logger)
	}

	if derr != nil {
		g.metrics.IncEmailFailed(g.transportName(), derr.Code.String())
		logger.Warn("email not delivered",
			zap.String("code", derr.Code.String()),
			zap.Error(derr),
		)
		return derr
	}
	return nil
}

func (g *DeliveryGateway) deliver(ctx context.Context, msg *domain.Message, logger *zap.Logger) (bool, *domain.DeliveryError) {
	if derr := g.settings.Validate(); derr != nil {
		return false, derr
	}
	if strings.TrimSpace(msg.From) == "" {
		msg.From = strings.TrimSpace(g.settings.FromAddress)
	}
	if derr := domain.ValidateMessage(*msg); derr != nil {
		return false, derr
	}

	if !g.enabled {
		g.metrics.IncEmailSuppressed()
		logger.Info("email transport disabled, message not sent",
			zap.Strings("to", msg.ToAddresses()),
			zap.Int("recipients", len(msg.Recipients())),
		)
		return false, nil
	}

	name := g.transport.Name()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, name); err != nil {
			message := "send throttle unavailable"
			if errors.Is(err, ratelimit.ErrThrottled) {
				message = "send throttled"
			}
			return false, &domain.DeliveryError{
				Code:    domain.DeliveryTransportFailure,
				Message: message,
				Cause:   err,
			}
		}
	}

	start := g.now()
	receipt, err := g.transport.Send(ctx, *msg)
	g.metrics.ObserveEmailSendDuration(name, g.now().Sub(start))
	if err != nil {
		return false, &domain.DeliveryError{
			Code:    domain.DeliveryTransportFailure,
			Message: fmt.Sprintf("transient=%t", provider.IsTransient(err)),
			Cause:   err,
		}
	}

	g.metrics.IncEmailSent(name)
	fields := []zap.Field{zap.String("transport", name), zap.Int("recipients", len(msg.Recipients()))}
	if receipt != nil && receipt.MessageID != "" {
		fields = append(fields, zap.String("messageId", receipt.MessageID))
	}
	logger.Info("email sent", fields...)
	return true, nil
}

// recordAudit runs detached from ctx cancellation so that a send which
// timed out still leaves its audit row.
func (g *DeliveryGateway) recordAudit(ctx context.Context, msg domain.Message, sent bool, logger *zap.Logger) {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	record := &domain.UserNotification{
		ID:           g.newID(),
		Username:     strings.TrimSpace(msg.Username),
		Subject:      msg.Subject,
		Body:         msg.NotificationBody,
		EmailSentInd: sent,
		CreatedAt:    g.now().UTC(),
	}
	if err := g.audits.Create(auditCtx, record); err != nil {
		g.metrics.IncAuditWriteFailure()
		logger.Error("failed to persist user notification",
			zap.Bool("emailSent", sent),
			zap.Error(err),
		)
	}
}

func (g *DeliveryGateway) transportName() string {
	if !g.enabled || g.transport == nil {
		return disabledTransportTag
	}
	return g.transport.Name()
}
