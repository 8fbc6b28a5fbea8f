package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/provider"
	"go.uber.org/zap"
)

// DeliveryTarget identifies the endpoint and event an attempt loop serves.
type DeliveryTarget struct {
	EndpointID   string
	EndpointType domain.ChannelType
	EventKind    domain.EventKind
	TargetUserID *string
	Metadata     map[string]any
}

// SendFunc performs one outbound send.
type SendFunc func(ctx context.Context) error

// DeliveryService runs a send inside a bounded retry loop, classifies every
// attempt and records it.
type DeliveryService struct {
	recorder AttemptRecorder
	policy   RetryPolicy
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newID    func() string
}

func NewDeliveryService(recorder AttemptRecorder, policy RetryPolicy, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		recorder: recorder,
		policy:   policy.Resolve(RetryOverride{}),
		logger:   logger,
		now:      time.Now,
		sleep:    sleepWithContext,
		newID:    uuid.NewString,
	}
}

func (s *DeliveryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Policy returns the process-wide retry policy.
func (s *DeliveryService) Policy() RetryPolicy {
	return s.policy
}

// Deliver never returns an error; every outcome is reported in the result.
func (s *DeliveryService) Deliver(ctx context.Context, target DeliveryTarget, send SendFunc, override RetryOverride) domain.DeliveryResult {
	if ctx == nil {
		ctx = context.Background()
	}

	policy := s.policy.Resolve(override)
	maxAttempts := policy.MaxAttempts()
	channel := target.EndpointType.String()
	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("endpointId", target.EndpointID),
		zap.String("endpointType", channel),
		zap.String("eventKind", target.EventKind.String()),
	)

	var result domain.DeliveryResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		startedAt := s.now()
		err := send(ctx)
		duration := s.now().Sub(startedAt)

		status := classify(err)
		s.record(ctx, logger, target, attempt, status, duration, err)
		s.metrics.IncDeliveryAttempt(channel, status.String())
		s.metrics.ObserveAttemptDuration(channel, duration)

		result = domain.DeliveryResult{
			Status:   status,
			Attempts: attempt,
			Retries:  attempt - 1,
			Error:    errorMessage(err),
		}

		switch status {
		case domain.DeliverySuccess:
			s.metrics.IncDelivery(channel, status.String())
			return result
		case domain.DeliverySkipped:
			logger.Info("delivery skipped", zap.Int("attempt", attempt), zap.Error(err))
			s.metrics.IncDelivery(channel, status.String())
			return result
		}

		if attempt == maxAttempts {
			break
		}

		backoff := policy.Backoff(attempt)
		logger.Warn("delivery attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		s.metrics.IncRetry(channel)

		if sleepErr := s.sleep(ctx, backoff); sleepErr != nil {
			logger.Warn("delivery backoff interrupted", zap.Error(sleepErr))
			break
		}
	}

	logger.Error("delivery failed",
		zap.Int("attempts", result.Attempts),
		zap.Stringp("error", result.Error),
	)
	s.metrics.IncDelivery(channel, result.Status.String())
	return result
}

func (s *DeliveryService) record(
	ctx context.Context,
	logger *zap.Logger,
	target DeliveryTarget,
	attemptNumber int,
	status domain.DeliveryStatus,
	duration time.Duration,
	sendErr error,
) {
	if s.recorder == nil {
		return
	}

	attempt := &domain.DeliveryAttempt{
		ID:            s.newID(),
		EndpointID:    target.EndpointID,
		EndpointType:  target.EndpointType,
		EventKind:     target.EventKind,
		AttemptNumber: attemptNumber,
		Status:        status,
		DurationMs:    duration.Milliseconds(),
		ErrorMessage:  errorMessage(sendErr),
		TargetUserID:  target.TargetUserID,
		Metadata:      attemptMetadata(ctx, target.Metadata, sendErr),
		CreatedAt:     s.now().UTC(),
	}

	if err := s.recorder.RecordAttempt(ctx, attempt); err != nil {
		logger.Warn("failed to record delivery attempt",
			zap.Int("attempt", attemptNumber),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
}

func classify(err error) domain.DeliveryStatus {
	switch {
	case err == nil:
		return domain.DeliverySuccess
	case provider.IsSkip(err):
		return domain.DeliverySkipped
	default:
		return domain.DeliveryFailure
	}
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func attemptMetadata(ctx context.Context, base map[string]any, sendErr error) map[string]any {
	out := make(map[string]any, len(base)+2)
	for k, v := range base {
		out[k] = v
	}
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		out["correlationId"] = correlationID
	}
	if code := provider.StatusCode(sendErr); code > 0 {
		out["statusCode"] = code
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
