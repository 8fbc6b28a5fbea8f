package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []domain.DeliveryAttempt
	recordFn func(ctx context.Context, attempt *domain.DeliveryAttempt) error
}

func (f *fakeRecorder) RecordAttempt(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, *attempt)
	f.mu.Unlock()
	if f.recordFn != nil {
		return f.recordFn(ctx, attempt)
	}
	return nil
}

func (f *fakeRecorder) all() []domain.DeliveryAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DeliveryAttempt, len(f.attempts))
	copy(out, f.attempts)
	return out
}

func (f *fakeRecorder) forEndpoint(id string) []domain.DeliveryAttempt {
	var out []domain.DeliveryAttempt
	for _, a := range f.all() {
		if a.EndpointID == id {
			out = append(out, a)
		}
	}
	return out
}

type fakeEndpointSource struct {
	mu        sync.Mutex
	userCalls map[string]int

	listGlobalFn  func(ctx context.Context) ([]domain.NotificationEndpoint, error)
	listForUserFn func(ctx context.Context, userID string) ([]domain.NotificationEndpoint, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.NotificationEndpoint, error)
}

func (f *fakeEndpointSource) ListGlobalEndpoints(ctx context.Context) ([]domain.NotificationEndpoint, error) {
	if f.listGlobalFn == nil {
		return nil, nil
	}
	return f.listGlobalFn(ctx)
}

func (f *fakeEndpointSource) ListEndpointsForUser(ctx context.Context, userID string) ([]domain.NotificationEndpoint, error) {
	f.mu.Lock()
	if f.userCalls == nil {
		f.userCalls = make(map[string]int)
	}
	f.userCalls[userID]++
	f.mu.Unlock()

	if f.listForUserFn == nil {
		return nil, nil
	}
	return f.listForUserFn(ctx, userID)
}

func (f *fakeEndpointSource) GetByID(ctx context.Context, id string) (*domain.NotificationEndpoint, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

type fakeAdapter struct {
	channel domain.ChannelType
	shape   message.Shape
	sendFn  func(ctx context.Context, config map[string]string, msg message.Message) error
}

func (f *fakeAdapter) Type() domain.ChannelType { return f.channel }

func (f *fakeAdapter) Shape() message.Shape {
	if f.shape == "" {
		return message.ShapeText
	}
	return f.shape
}

func (f *fakeAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	if f.sendFn == nil {
		return nil
	}
	return f.sendFn(ctx, config, msg)
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.consumeFn(ctx, queueName, handler)
}

func (f *fakeConsumer) Close() error { return nil }

type fakeTrigger struct {
	triggerFn func(ctx context.Context, kind domain.EventKind, eventCtx domain.EventContext, opts *DeliveryOptions) (FanoutResult, error)
}

func (f *fakeTrigger) TriggerEvent(ctx context.Context, kind domain.EventKind, eventCtx domain.EventContext, opts *DeliveryOptions) (FanoutResult, error) {
	return f.triggerFn(ctx, kind, eventCtx, opts)
}

// sleepRecorder captures backoff waits without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return nil
}

func (s *sleepRecorder) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

func newTestDeliveryService(recorder AttemptRecorder, policy RetryPolicy, logger *zap.Logger) (*DeliveryService, *sleepRecorder) {
	svc := NewDeliveryService(recorder, policy, logger)
	sleeps := &sleepRecorder{}
	svc.sleep = sleeps.sleep
	base := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return base }
	return svc, sleeps
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
