package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errDeliveriesClosed = errors.New("delivery channel closed")

// RabbitMQConsumer drains an email queue. Each Consume call runs its own
// channel with its own prefetch window and resubscribes after a broker
// disconnect.
type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitMQConsumer{
		client:   client,
		prefetch: max(prefetch, 1),
		logger:   logger,
	}
}

// Consume blocks until ctx is done.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	tag := "housing-" + queue + "-" + uuid.NewString()[:8]
	logger := c.logger.With(zap.String("queue", queue), zap.String("consumerTag", tag))

	wait := reconnectBackoff
	for {
		err := c.subscribe(ctx, queue, tag, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			wait = reconnectBackoff
			continue
		}

		logger.Warn("email consumer disconnected, resubscribing",
			zap.Error(err),
			zap.Duration("backoff", wait),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = nextBackoff(wait)
	}
}

func (c *RabbitMQConsumer) subscribe(ctx context.Context, queue, tag string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch %d: %w", c.prefetch, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			if err := c.settle(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// settle runs handler for one delivery and acknowledges it:
//   - an undecodable or invalid envelope is dead-lettered without a handler call
//   - a handler error during shutdown requeues the message
//   - a handler error on a message that was already redelivered dead-letters it
//   - any other handler error requeues it once
//
// The returned error is an acknowledgement failure, which means the channel
// is unusable.
func (c *RabbitMQConsumer) settle(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	logger := c.logger.With(
		zap.String("messageId", d.MessageId),
		zap.String("kind", d.Type),
		zap.String("correlationId", d.CorrelationId),
		zap.Bool("redelivered", d.Redelivered),
	)

	msg, err := decodeDelivery(d)
	if err != nil {
		logger.Warn("dead-lettering undeliverable email envelope", zap.Error(err))
		return wrapAckErr("reject", d.Reject(false))
	}

	err = handler(ctx, msg)
	switch {
	case err == nil:
		return wrapAckErr("ack", d.Ack(false))
	case ctx.Err() != nil:
		logger.Info("requeueing email interrupted by shutdown", zap.Error(err))
		return wrapAckErr("nack", d.Nack(false, true))
	case d.Redelivered:
		logger.Error("dead-lettering email that failed again after redelivery", zap.Error(err))
		return wrapAckErr("reject", d.Reject(false))
	default:
		logger.Warn("requeueing email after handler failure", zap.Error(err))
		return wrapAckErr("nack", d.Nack(false, true))
	}
}

func decodeDelivery(d amqp.Delivery) (EmailMessage, error) {
	if d.ContentType != "" && d.ContentType != contentTypeJSON {
		return EmailMessage{}, fmt.Errorf("unsupported content type %q", d.ContentType)
	}

	var msg EmailMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return EmailMessage{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return EmailMessage{}, err
	}
	return msg, nil
}

func wrapAckErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s delivery: %w", op, err)
}

// Close is a no-op; the connection is owned and closed by the RabbitMQ
// client passed to NewRabbitMQConsumer.
func (c *RabbitMQConsumer) Close() error {
	return nil
}
