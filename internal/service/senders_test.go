package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
)

func TestInlineSenderCallsGateway(t *testing.T) {
	t.Parallel()

	if _, err := NewInlineSender(nil); err == nil {
		t.Fatal("expected error without gateway")
	}

	var got domain.Message
	sender, err := NewInlineSender(&fakeGateway{
		sendEmailFn: func(ctx context.Context, msg domain.Message) error {
			got = msg
			return errors.New("smtp down")
		},
	})
	if err != nil {
		t.Fatalf("NewInlineSender() error = %v", err)
	}

	msg := domain.Message{To: "a@example.org", Subject: "s", Body: "b"}
	if err := sender.Send(context.Background(), composer.KindRegistration, msg); err == nil {
		t.Fatal("expected gateway error to be returned")
	}
	if got.To != msg.To {
		t.Fatalf("gateway got %+v", got)
	}
}

func TestQueuedSenderPublishesEnvelope(t *testing.T) {
	t.Parallel()

	enqueuedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))
	var gotQueue string
	var got queue.EmailMessage
	sender, err := NewQueuedSender(&fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.EmailMessage) error {
			gotQueue = queueName
			got = msg
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewQueuedSender() error = %v", err)
	}
	sender.now = func() time.Time { return enqueuedAt }
	sender.newID = func() string { return "msg-1" }

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	msg := domain.Message{To: "staff@example.org", Subject: "Potential Duplicate Housing Application", Body: "b"}
	if err := sender.Send(ctx, composer.KindPotentialDuplicateStaff, msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotQueue != queue.EmailQueue {
		t.Fatalf("queue = %q, want %q", gotQueue, queue.EmailQueue)
	}
	if got.ID != "msg-1" || got.CorrelationID != "corr-1" {
		t.Fatalf("envelope ids = %q/%q", got.ID, got.CorrelationID)
	}
	if got.Kind != composer.KindPotentialDuplicateStaff.String() || !got.Internal {
		t.Fatalf("envelope kind = %q internal = %t", got.Kind, got.Internal)
	}
	if !got.EnqueuedAt.Equal(enqueuedAt) || got.EnqueuedAt.Location() != time.UTC {
		t.Fatalf("enqueuedAt = %v, want UTC %v", got.EnqueuedAt, enqueuedAt)
	}
	if got.Message.Subject != msg.Subject {
		t.Fatalf("message = %+v", got.Message)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("envelope Validate() error = %v", err)
	}
}

func TestQueuedSenderPublishFailure(t *testing.T) {
	t.Parallel()

	publishErr := errors.New("channel closed")
	sender, err := NewQueuedSender(&fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.EmailMessage) error {
			return publishErr
		},
	})
	if err != nil {
		t.Fatalf("NewQueuedSender() error = %v", err)
	}

	err = sender.Send(context.Background(), composer.KindRegistration, domain.Message{})
	if !errors.Is(err, publishErr) {
		t.Fatalf("Send() error = %v, want wrapped publish error", err)
	}
}
