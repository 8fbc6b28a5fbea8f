package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-engine/internal/domain"
)

// Publisher publishes event messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EventMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg EventMessage) error

// Consumer consumes event messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	DefaultEventsQueue = "notify.events"

	// queueMaxPriority is the RabbitMQ x-max-priority value for event queues.
	queueMaxPriority int32 = 3
)

// DLQName returns the dead-letter queue name for a work queue, e.g. dlq.notify.events.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", strings.TrimSpace(queue))
}

// PriorityValue maps event severity to RabbitMQ message priority.
func PriorityValue(severity domain.Severity) uint8 {
	switch severity {
	case domain.SeverityCritical:
		return 3
	case domain.SeverityWarning:
		return 2
	case domain.SeverityInfo, "":
		return 1
	default:
		return 0
	}
}
