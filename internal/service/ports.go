package service

import (
	"context"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/provider"
)

// AttemptRecorder durably appends delivery attempts. Implementations must be
// safe for concurrent use.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *domain.DeliveryAttempt) error
}

// EndpointSource resolves candidate endpoints for a fan-out.
type EndpointSource interface {
	ListGlobalEndpoints(ctx context.Context) ([]domain.NotificationEndpoint, error)
	ListEndpointsForUser(ctx context.Context, userID string) ([]domain.NotificationEndpoint, error)
	GetByID(ctx context.Context, id string) (*domain.NotificationEndpoint, error)
}

// AdapterLookup finds the adapter serving a channel type.
type AdapterLookup interface {
	Lookup(channelType domain.ChannelType) (provider.Adapter, bool)
}
