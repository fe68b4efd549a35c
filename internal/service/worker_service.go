package service

import (
	"context"
	"errors"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// DispatchWorker delivers queued emails through the delivery gateway. Each
// delivery is exactly one attempted send: the message is acked whatever the
// outcome, since the gateway has already recorded it.
type DispatchWorker struct {
	consumer    queue.Consumer
	gateway     EmailGateway
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewDispatchWorker(
	consumer queue.Consumer,
	gateway EmailGateway,
	concurrency int,
	logger *zap.Logger,
) (*DispatchWorker, error) {
	if consumer == nil {
		return nil, errors.New("dispatch worker: consumer is required")
	}
	if gateway == nil {
		return nil, errors.New("dispatch worker: gateway is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchWorker{
		consumer:    consumer,
		gateway:     gateway,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (w *DispatchWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start runs the consumers until ctx is canceled or one of them fails.
func (w *DispatchWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("dispatch worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.EmailQueue),
			)

			if err := w.consumer.Consume(groupCtx, queue.EmailQueue, w.processMessage); err != nil {
				w.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *DispatchWorker) processMessage(ctx context.Context, msg queue.EmailMessage) error {
	// Shutting down before the send started: requeue for another worker.
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(w.logger, ctx).With(
		zap.String("messageId", msg.ID),
		zap.String("kind", msg.Kind),
	)

	w.metrics.IncDispatchInFlight()
	defer w.metrics.DecDispatchInFlight()

	err := w.gateway.SendEmail(ctx, msg.Message)
	if err == nil {
		logger.Debug("queued email processed")
		return nil
	}

	var derr *domain.DeliveryError
	if errors.As(err, &derr) {
		logger.Warn("queued email not delivered", zap.String("code", derr.Code.String()), zap.Error(err))
		return nil
	}

	logger.Error("queued email failed", zap.Error(err))
	return nil
}
