package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultConfirmTimeout = 5 * time.Second

// RabbitMQPublisher publishes email messages on a single channel in confirm
// mode. Publish returns only after the broker has taken responsibility for
// the message, so a queued notice is never reported sent when it was lost.
type RabbitMQPublisher struct {
	client         *RabbitMQ
	confirmTimeout time.Duration

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client, confirmTimeout: defaultConfirmTimeout}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, msg EmailMessage) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}

	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.confirmChannel(ctx)
	if err != nil {
		return err
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, publishing)
	if err != nil {
		p.resetChannel()
		return fmt.Errorf("failed to publish email %s to %q: %w", msg.ID, queue, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	acked, err := confirmation.WaitContext(waitCtx)
	if err != nil {
		p.resetChannel()
		return fmt.Errorf("broker did not confirm email %s: %w", msg.ID, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected email %s", msg.ID)
	}
	return nil
}

// Close releases the publisher's channel. The connection belongs to the
// RabbitMQ client and is closed by its owner.
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		p.ch = nil
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *RabbitMQPublisher) confirmChannel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *RabbitMQPublisher) resetChannel() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.ch = nil
}

// newPublishing validates the envelope and renders it as a persistent JSON
// publishing carrying the kind, correlation id and audience priority.
func newPublishing(msg EmailMessage) (amqp.Publishing, error) {
	if err := msg.Validate(); err != nil {
		return amqp.Publishing{}, fmt.Errorf("invalid email message: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal email message: %w", err)
	}

	return amqp.Publishing{
		ContentType:   contentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     msg.EnqueuedAt.UTC(),
		MessageId:     msg.ID,
		CorrelationId: msg.CorrelationID,
		Type:          msg.Kind,
		Priority:      PriorityValue(msg),
		Body:          body,
	}, nil
}
