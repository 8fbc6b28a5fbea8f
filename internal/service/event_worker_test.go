package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"go.uber.org/zap"
)

func validEventMessage() queue.EventMessage {
	return queue.EventMessage{
		EventID:       "evt-1",
		CorrelationID: "cid-queue",
		Kind:          domain.EventSystemHealthDegraded,
		Context:       domain.EventContext{Subject: "Disk almost full", Severity: domain.SeverityWarning},
	}
}

func TestEventWorkerHandleMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		triggerErr    error
		wantErr       bool
		wantPermanent bool
	}{
		{name: "dispatched", triggerErr: nil},
		{name: "storage error is retried", triggerErr: errors.New("connection refused"), wantErr: true},
		{name: "validation error is permanent", triggerErr: fmt.Errorf("%w: subject is required", domain.ErrValidation), wantErr: true, wantPermanent: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trigger := &fakeTrigger{triggerFn: func(ctx context.Context, kind domain.EventKind, eventCtx domain.EventContext, opts *DeliveryOptions) (FanoutResult, error) {
				if id, _ := observability.CorrelationIDFromContext(ctx); id != "cid-queue" {
					t.Errorf("correlation id = %q, want cid-queue", id)
				}
				if kind != domain.EventSystemHealthDegraded || eventCtx.Subject != "Disk almost full" {
					t.Errorf("TriggerEvent(%s, %+v) unexpected input", kind, eventCtx)
				}
				if opts != nil {
					t.Errorf("opts = %+v, want nil for message without options", opts)
				}
				return FanoutResult{Eligible: 1, Delivered: 1}, tt.triggerErr
			}}

			worker, err := NewEventWorker(&fakeConsumer{}, trigger, "", 1, zap.NewNop())
			if err != nil {
				t.Fatalf("NewEventWorker() error = %v", err)
			}

			err = worker.handleMessage(context.Background(), validEventMessage())
			if (err != nil) != tt.wantErr {
				t.Fatalf("handleMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, queue.ErrPermanent); got != tt.wantPermanent {
				t.Fatalf("errors.Is(err, ErrPermanent) = %v, want %v", got, tt.wantPermanent)
			}
		})
	}
}

func TestEventWorkerStartRunsConsumers(t *testing.T) {
	t.Parallel()

	var consumers atomic.Int32
	consumer := &fakeConsumer{consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
		if queueName != "custom.events" {
			t.Errorf("queue = %q, want custom.events", queueName)
		}
		consumers.Add(1)
		<-ctx.Done()
		return nil
	}}
	trigger := &fakeTrigger{triggerFn: func(context.Context, domain.EventKind, domain.EventContext, *DeliveryOptions) (FanoutResult, error) {
		return FanoutResult{}, nil
	}}

	worker, err := NewEventWorker(consumer, trigger, "custom.events", 3, nil)
	if err != nil {
		t.Fatalf("NewEventWorker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for consumers.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("consumers started = %d, want 3", consumers.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestEventWorkerStartPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	consumer := &fakeConsumer{consumeFn: func(context.Context, string, queue.MessageHandler) error {
		return errors.New("channel closed")
	}}
	trigger := &fakeTrigger{}

	worker, err := NewEventWorker(consumer, trigger, "", 2, nil)
	if err != nil {
		t.Fatalf("NewEventWorker() error = %v", err)
	}
	if err := worker.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want consumer error")
	}
}

func TestDeliveryOptionsFromMessage(t *testing.T) {
	t.Parallel()

	if got := DeliveryOptionsFromMessage(nil); got != nil {
		t.Fatalf("DeliveryOptionsFromMessage(nil) = %+v, want nil", got)
	}

	backoff := 250
	no := false
	got := DeliveryOptionsFromMessage(&queue.EventOptions{
		IncludeGlobalEndpoints: &no,
		TargetUserIDs:          []string{"u1"},
		IgnoreEventFilters:     true,
		MaxRetries:             intPtr(3),
		BaseBackoffMs:          &backoff,
	})
	if got.IncludeGlobalEndpoints || !got.IgnoreEventFilters || len(got.TargetUserIDs) != 1 {
		t.Fatalf("options = %+v, want globals off, filters ignored, one user", got)
	}
	if got.Retry.MaxRetries == nil || *got.Retry.MaxRetries != 3 {
		t.Fatalf("Retry.MaxRetries = %v, want 3", got.Retry.MaxRetries)
	}
	if got.Retry.BaseBackoff == nil || *got.Retry.BaseBackoff != 250*time.Millisecond {
		t.Fatalf("Retry.BaseBackoff = %v, want 250ms", got.Retry.BaseBackoff)
	}

	defaults := DeliveryOptionsFromMessage(&queue.EventOptions{})
	if !defaults.IncludeGlobalEndpoints {
		t.Fatal("IncludeGlobalEndpoints should default to true")
	}
}

func TestNewEventWorkerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewEventWorker(nil, &fakeTrigger{}, "", 1, nil); err == nil {
		t.Fatal("NewEventWorker(nil consumer) error = nil, want error")
	}
	if _, err := NewEventWorker(&fakeConsumer{}, nil, "", 1, nil); err == nil {
		t.Fatal("NewEventWorker(nil trigger) error = nil, want error")
	}
}
