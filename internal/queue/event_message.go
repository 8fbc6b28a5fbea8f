package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-engine/internal/domain"
)

// EventMessage is the broker payload for an event awaiting fan-out.
type EventMessage struct {
	EventID       string              `json:"eventId"`
	CorrelationID string              `json:"correlationId,omitempty"`
	Kind          domain.EventKind    `json:"kind"`
	Context       domain.EventContext `json:"context"`
	Options       *EventOptions       `json:"options,omitempty"`
}

// MaxRetriesLimit bounds the per-event retry override. With the 5s backoff
// ceiling it keeps a single delivery under a minute of waiting.
const MaxRetriesLimit = 10

// EventOptions mirrors the dispatcher options that may travel over the wire.
// A nil IncludeGlobalEndpoints means true.
type EventOptions struct {
	IncludeGlobalEndpoints *bool    `json:"includeGlobalEndpoints,omitempty"`
	TargetUserIDs          []string `json:"targetUserIds,omitempty"`
	IgnoreEventFilters     bool     `json:"ignoreEventFilters,omitempty"`
	MaxRetries             *int     `json:"maxRetries,omitempty"`
	BaseBackoffMs          *int     `json:"baseBackoffMs,omitempty"`
}

func (m EventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid event kind %q", m.Kind)
	}
	if err := m.Context.Validate(); err != nil {
		return err
	}
	return m.Options.Validate()
}

// Validate checks the retry overrides. A nil receiver is valid.
func (o *EventOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.MaxRetries != nil && (*o.MaxRetries < 0 || *o.MaxRetries > MaxRetriesLimit) {
		return fmt.Errorf("maxRetries must be between 0 and %d", MaxRetriesLimit)
	}
	if o.BaseBackoffMs != nil && *o.BaseBackoffMs < 0 {
		return fmt.Errorf("baseBackoffMs must not be negative")
	}
	return nil
}
