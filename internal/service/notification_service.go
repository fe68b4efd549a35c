package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// MessageComposer renders a notification kind into a Message.
type MessageComposer interface {
	Compose(ctx context.Context, req composer.Request) (domain.Message, error)
}

// Notifier composes and sends one notification.
type Notifier interface {
	Notify(ctx context.Context, req composer.Request) (domain.Message, error)
}

var _ Notifier = (*NotificationService)(nil)

type NotificationService struct {
	composer MessageComposer
	sender   Sender
	audits   repository.UserNotificationRepository
	logger   *zap.Logger
}

func NewNotificationService(
	messages MessageComposer,
	sender Sender,
	audits repository.UserNotificationRepository,
	logger *zap.Logger,
) (*NotificationService, error) {
	if messages == nil {
		return nil, errors.New("notification service: composer is required")
	}
	if sender == nil {
		return nil, errors.New("notification service: sender is required")
	}
	if audits == nil {
		return nil, errors.New("notification service: user notification repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		composer: messages,
		sender:   sender,
		audits:   audits,
		logger:   logger,
	}, nil
}

// Notify composes req and hands it to the sender. A composition failure
// (unknown kind, missing value, missing config) means nothing was sent and
// no audit row exists. A delivery failure is returned after the gateway
// has already recorded the attempt.
func (s *NotificationService) Notify(ctx context.Context, req composer.Request) (domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	msg, err := s.composer.Compose(ctx, req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("compose %s: %w", req.Kind, err)
	}

	if err := s.sender.Send(ctx, req.Kind, msg); err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("notification delivery failed",
			zap.String("kind", req.Kind.String()),
			zap.String("username", req.Username),
			zap.Error(err),
		)
		return msg, err
	}

	return msg, nil
}

// History lists the audit records of one user, newest first.
func (s *NotificationService) History(ctx context.Context, username string, limit int) ([]domain.UserNotification, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", domain.ErrValidation, maxHistoryLimit)
	}

	return s.audits.ListByUsername(ctx, username, limit)
}
