package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func queuedEmail() queue.EmailMessage {
	return queue.EmailMessage{
		ID:            "msg-1",
		CorrelationID: "corr-1",
		Kind:          "application-submitted",
		Message:       domain.Message{To: "a@example.org", Subject: "s", Body: "b"},
		EnqueuedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewDispatchWorkerDefaults(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatchWorker(nil, &fakeGateway{}, 1, nil); err == nil {
		t.Fatal("expected error without consumer")
	}
	if _, err := NewDispatchWorker(&fakeConsumer{}, nil, 1, nil); err == nil {
		t.Fatal("expected error without gateway")
	}

	worker, err := NewDispatchWorker(&fakeConsumer{}, &fakeGateway{}, 0, nil)
	if err != nil {
		t.Fatalf("NewDispatchWorker() error = %v", err)
	}
	if worker.concurrency != minWorkerConcurrency {
		t.Fatalf("concurrency = %d, want %d", worker.concurrency, minWorkerConcurrency)
	}
}

func TestDispatchWorkerProcessMessageAcksEveryOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sendErr   error
		wantLevel string
	}{
		{name: "delivered", sendErr: nil},
		{
			name:      "delivery error",
			sendErr:   domain.NewDeliveryError(domain.DeliveryTransportFailure, "transient=%t", true),
			wantLevel: "warn",
		},
		{name: "unexpected error", sendErr: errors.New("boom"), wantLevel: "error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotCorrelation string
			var gotMsg domain.Message
			gateway := &fakeGateway{
				sendEmailFn: func(ctx context.Context, msg domain.Message) error {
					gotCorrelation, _ = observability.CorrelationIDFromContext(ctx)
					gotMsg = msg
					return tt.sendErr
				},
			}
			core, logs := observer.New(zap.WarnLevel)
			worker, err := NewDispatchWorker(&fakeConsumer{}, gateway, 1, zap.New(core))
			if err != nil {
				t.Fatalf("NewDispatchWorker() error = %v", err)
			}

			if err := worker.processMessage(context.Background(), queuedEmail()); err != nil {
				t.Fatalf("processMessage() error = %v, want ack", err)
			}
			if gotCorrelation != "corr-1" {
				t.Fatalf("correlation id = %q, want corr-1", gotCorrelation)
			}
			if gotMsg.To != "a@example.org" {
				t.Fatalf("gateway message = %+v", gotMsg)
			}

			entries := logs.All()
			if tt.wantLevel == "" {
				if len(entries) != 0 {
					t.Fatalf("unexpected logs: %v", entries)
				}
				return
			}
			if len(entries) != 1 || entries[0].Level.String() != tt.wantLevel {
				t.Fatalf("logs = %v, want one %s entry", entries, tt.wantLevel)
			}
			if entries[0].ContextMap()["messageId"] != "msg-1" {
				t.Fatalf("log context = %v", entries[0].ContextMap())
			}
		})
	}
}

func TestDispatchWorkerProcessMessageCanceledBeforeSendRequeues(t *testing.T) {
	t.Parallel()

	sends := 0
	gateway := &fakeGateway{
		sendEmailFn: func(ctx context.Context, msg domain.Message) error {
			sends++
			return nil
		},
	}
	worker, err := NewDispatchWorker(&fakeConsumer{}, gateway, 1, nil)
	if err != nil {
		t.Fatalf("NewDispatchWorker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := worker.processMessage(ctx, queuedEmail()); !errors.Is(err, context.Canceled) {
		t.Fatalf("processMessage() error = %v, want context.Canceled", err)
	}
	if sends != 0 {
		t.Fatalf("sends = %d, want 0", sends)
	}
}

func TestDispatchWorkerStartRunsConsumersOnEmailQueue(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	queues := make([]string, 0, 3)
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			mu.Lock()
			queues = append(queues, queueName)
			mu.Unlock()
			return nil
		},
	}
	worker, err := NewDispatchWorker(consumer, &fakeGateway{}, 3, nil)
	if err != nil {
		t.Fatalf("NewDispatchWorker() error = %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(queues) != 3 {
		t.Fatalf("consumers = %d, want 3", len(queues))
	}
	for _, q := range queues {
		if q != queue.EmailQueue {
			t.Fatalf("queue = %q, want %q", q, queue.EmailQueue)
		}
	}
}

func TestDispatchWorkerStartPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	consumeErr := errors.New("consume failed")
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			return consumeErr
		},
	}
	worker, err := NewDispatchWorker(consumer, &fakeGateway{}, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchWorker() error = %v", err)
	}

	if err := worker.Start(context.Background()); !errors.Is(err, consumeErr) {
		t.Fatalf("Start() error = %v, want %v", err, consumeErr)
	}
}
