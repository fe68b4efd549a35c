package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName = "housing.dlx"

	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
	heartbeat        = 10 * time.Second
	dialTimeout      = 15 * time.Second
)

// RabbitMQ owns one broker connection shared by the publisher and the
// consumers of a process. The email topology is declared once per
// connection, right after it is established.
type RabbitMQ struct {
	url  string
	name string

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewRabbitMQ connects to url. name shows up as the connection name in the
// broker's management UI ("housing-engine-api", "housing-engine-worker").
func NewRabbitMQ(url string, name string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "housing-engine"
	}

	r := &RabbitMQ{url: url, name: name}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// Ping reports whether the broker is reachable, reconnecting if the
// connection dropped.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	_, err := r.connection(ctx)
	return err
}

// channel opens a channel on the live connection. A failed open is retried
// once on a fresh connection.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err == nil {
		return ch, nil
	}

	r.drop(conn)
	conn, err = r.connection(ctx)
	if err != nil {
		return nil, err
	}
	ch, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel after reconnect: %w", err)
	}
	return ch, nil
}

// connection returns the live connection, dialing with exponential backoff
// until ctx is done when there is none.
func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}

	wait := reconnectBackoff
	for {
		conn, err := r.dial()
		if err == nil {
			r.conn = conn
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connect canceled after %v: %w", err, ctx.Err())
		case <-time.After(wait):
		}
		wait = nextBackoff(wait)
	}
}

func (r *RabbitMQ) dial() (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(r.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: amqp.Table{"connection_name": r.name},
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := declareEmailTopology(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// drop forgets conn if it is still the current connection so the next
// caller dials again.
func (r *RabbitMQ) drop(conn *amqp.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == conn {
		r.conn = nil
	}
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}

// declareEmailTopology sets up the email work queue, dead-lettering into
// dlq.email through the housing.dlx exchange.
func declareEmailTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", dlxExchangeName, err)
	}
	if _, err := ch.QueueDeclare(EmailDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", EmailDLQ, err)
	}
	if err := ch.QueueBind(EmailDLQ, emailRoutingKey, dlxExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", EmailDLQ, err)
	}

	if _, err := ch.QueueDeclare(EmailQueue, true, false, false, false, emailQueueArgs()); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", EmailQueue, err)
	}
	return nil
}

func emailQueueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": emailRoutingKey,
		"x-max-priority":            queueMaxPriority,
	}
}
