package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
)

// Sender hands a composed message to delivery, either inline or through
// the email queue.
type Sender interface {
	Send(ctx context.Context, kind composer.Kind, msg domain.Message) error
}

// InlineSender delivers on the caller's goroutine.
type InlineSender struct {
	gateway EmailGateway
}

func NewInlineSender(gateway EmailGateway) (*InlineSender, error) {
	if gateway == nil {
		return nil, errors.New("inline sender: gateway is required")
	}
	return &InlineSender{gateway: gateway}, nil
}

func (s *InlineSender) Send(ctx context.Context, _ composer.Kind, msg domain.Message) error {
	return s.gateway.SendEmail(ctx, msg)
}

// QueuedSender publishes the message for the dispatch worker. A nil error
// means the broker accepted it, not that it was delivered.
type QueuedSender struct {
	publisher queue.Publisher
	now       func() time.Time
	newID     func() string
}

func NewQueuedSender(publisher queue.Publisher) (*QueuedSender, error) {
	if publisher == nil {
		return nil, errors.New("queued sender: publisher is required")
	}
	return &QueuedSender{
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (s *QueuedSender) Send(ctx context.Context, kind composer.Kind, msg domain.Message) error {
	envelope := queue.EmailMessage{
		ID:         s.newID(),
		Kind:       kind.String(),
		Internal:   kind.Internal(),
		Message:    msg,
		EnqueuedAt: s.now().UTC(),
	}
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		envelope.CorrelationID = correlationID
	}

	if err := s.publisher.Publish(ctx, queue.EmailQueue, envelope); err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	return nil
}
