package queue

import (
	"context"
)

// Publisher publishes email messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EmailMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg EmailMessage) error

// Consumer consumes email messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// EmailQueue carries composed messages awaiting delivery.
	EmailQueue = "email"
	// EmailDLQ receives envelopes the worker could not decode and messages
	// that failed again after a redelivery.
	EmailDLQ = "dlq.email"

	emailRoutingKey = "email"
	contentTypeJSON = "application/json"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the email queue.
	queueMaxPriority int32 = 2
)

// PriorityValue maps a message to its RabbitMQ priority. Mail addressed to
// applicants and agents is delivered ahead of internal staff mail.
func PriorityValue(msg EmailMessage) uint8 {
	if msg.Internal {
		return 1
	}
	return 2
}
