package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDLQName(t *testing.T) {
	if got := DLQName("notify.events"); got != "dlq.notify.events" {
		t.Fatalf("DLQName = %s, want dlq.notify.events", got)
	}
}

func TestQueueArgsDeadLetterToOwnDLQ(t *testing.T) {
	args := queueArgs("notify.events")
	if args["x-dead-letter-exchange"] != dlxExchangeName {
		t.Fatalf("x-dead-letter-exchange = %v, want %s", args["x-dead-letter-exchange"], dlxExchangeName)
	}
	if args["x-dead-letter-routing-key"] != "notify.events" {
		t.Fatalf("x-dead-letter-routing-key = %v, want notify.events", args["x-dead-letter-routing-key"])
	}
}

func TestPriorityValue(t *testing.T) {
	tests := []struct {
		name     string
		severity domain.Severity
		want     uint8
	}{
		{name: "critical", severity: domain.SeverityCritical, want: 3},
		{name: "warning", severity: domain.SeverityWarning, want: 2},
		{name: "info", severity: domain.SeverityInfo, want: 1},
		{name: "unset", severity: "", want: 1},
		{name: "invalid", severity: domain.Severity("loud"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriorityValue(tt.severity)
			if got != tt.want {
				t.Fatalf("PriorityValue(%q) = %d, want %d", tt.severity, got, tt.want)
			}
		})
	}
}

func TestEventMessageValidate(t *testing.T) {
	valid := func() EventMessage {
		return EventMessage{
			EventID: "e1",
			Kind:    domain.EventIssueCreated,
			Context: domain.EventContext{Subject: "Broken subtitles"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	negative := -1
	tooMany := MaxRetriesLimit + 1
	tests := []struct {
		name   string
		mutate func(*EventMessage)
	}{
		{name: "missing id", mutate: func(m *EventMessage) { m.EventID = " " }},
		{name: "unknown kind", mutate: func(m *EventMessage) { m.Kind = "media_exploded" }},
		{name: "missing subject", mutate: func(m *EventMessage) { m.Context.Subject = "" }},
		{name: "negative retries", mutate: func(m *EventMessage) { m.Options = &EventOptions{MaxRetries: &negative} }},
		{name: "retries above limit", mutate: func(m *EventMessage) { m.Options = &EventOptions{MaxRetries: &tooMany} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid()
			tt.mutate(&msg)
			if err := msg.Validate(); err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
		})
	}
}

type fakeAcknowledger struct {
	acked    int
	nacked   int
	requeued bool
	rejected int
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked++; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error { f.rejected++; return nil }

func TestHandleDelivery(t *testing.T) {
	t.Parallel()

	validBody := []byte(`{"eventId":"e1","kind":"issue_created","context":{"subject":"Broken audio"}}`)

	tests := []struct {
		name       string
		body       []byte
		messageID  string
		handlerErr error
		wantAck    int
		wantNack   int
		wantReject int
		wantCalled bool
	}{
		{name: "valid message is acked", body: validBody, wantAck: 1, wantCalled: true},
		{name: "invalid json is rejected", body: []byte(`{`), wantReject: 1},
		{name: "unknown kind is rejected", body: []byte(`{"eventId":"e1","kind":"nope","context":{"subject":"x"}}`), wantReject: 1},
		{name: "event id falls back to message id", body: []byte(`{"kind":"issue_created","context":{"subject":"x"}}`), messageID: "amqp-1", wantAck: 1, wantCalled: true},
		{name: "handler error is requeued", body: validBody, handlerErr: errors.New("db down"), wantNack: 1, wantCalled: true},
		{name: "permanent handler error is rejected", body: validBody, handlerErr: fmt.Errorf("%w: bad target", ErrPermanent), wantReject: 1, wantCalled: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ack := &fakeAcknowledger{}
			consumer := NewRabbitMQConsumer(nil, 1, nil)
			called := false

			err := consumer.handleDelivery(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				Body:         tt.body,
				MessageId:    tt.messageID,
			}, func(ctx context.Context, msg EventMessage) error {
				called = true
				if msg.EventID == "" {
					t.Errorf("handler got empty EventID")
				}
				return tt.handlerErr
			})
			if err != nil {
				t.Fatalf("handleDelivery() error = %v", err)
			}

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack || ack.rejected != tt.wantReject {
				t.Fatalf("ack/nack/reject = %d/%d/%d, want %d/%d/%d",
					ack.acked, ack.nacked, ack.rejected, tt.wantAck, tt.wantNack, tt.wantReject)
			}
			if tt.wantNack > 0 && !ack.requeued {
				t.Fatal("nack should requeue")
			}
		})
	}
}
