package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// EventTrigger is the part of Dispatcher the event worker needs.
type EventTrigger interface {
	TriggerEvent(ctx context.Context, kind domain.EventKind, eventCtx domain.EventContext, opts *DeliveryOptions) (FanoutResult, error)
}

// EventWorker consumes queued events and hands them to the dispatcher.
type EventWorker struct {
	consumer    queue.Consumer
	trigger     EventTrigger
	queueName   string
	concurrency int
	logger      *zap.Logger
	metrics     *observability.Metrics
}

func NewEventWorker(
	consumer queue.Consumer,
	trigger EventTrigger,
	queueName string,
	concurrency int,
	logger *zap.Logger,
) (*EventWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if trigger == nil {
		return nil, fmt.Errorf("event trigger is required")
	}
	if queueName == "" {
		queueName = queue.DefaultEventsQueue
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventWorker{
		consumer:    consumer,
		trigger:     trigger,
		queueName:   queueName,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

func (w *EventWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start runs concurrency consumers on the events queue until ctx is done.
func (w *EventWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("event worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", w.queueName),
			)

			if err := w.consumer.Consume(groupCtx, w.queueName, w.handleMessage); err != nil {
				w.logger.Error("event worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", w.queueName),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("event worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", w.queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *EventWorker) handleMessage(ctx context.Context, msg queue.EventMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(w.logger, ctx).With(
		zap.String("eventId", msg.EventID),
		zap.String("eventKind", msg.Kind.String()),
	)

	result, err := w.trigger.TriggerEvent(ctx, msg.Kind, msg.Context, DeliveryOptionsFromMessage(msg.Options))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			w.metrics.IncEventConsumed("rejected")
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		w.metrics.IncEventConsumed("requeued")
		logger.Warn("event dispatch failed", zap.Error(err))
		return err
	}

	w.metrics.IncEventConsumed("dispatched")
	if result.Eligible == 0 {
		logger.Info("event had no eligible endpoints")
	}
	return nil
}

// DeliveryOptionsFromMessage converts wire options into dispatcher options.
func DeliveryOptionsFromMessage(opts *queue.EventOptions) *DeliveryOptions {
	if opts == nil {
		return nil
	}

	out := &DeliveryOptions{
		IncludeGlobalEndpoints: opts.IncludeGlobalEndpoints == nil || *opts.IncludeGlobalEndpoints,
		TargetUserIDs:          opts.TargetUserIDs,
		IgnoreEventFilters:     opts.IgnoreEventFilters,
		Retry:                  RetryOverride{MaxRetries: opts.MaxRetries},
	}
	if opts.BaseBackoffMs != nil {
		backoff := time.Duration(*opts.BaseBackoffMs) * time.Millisecond
		out.Retry.BaseBackoff = &backoff
	}
	return out
}
