package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventFilter selects which events an endpoint accepts. Bitmask filters
// test containment of the event's mask; otherwise Kinds is an explicit list.
type EventFilter struct {
	Bitmask bool
	Types   uint64
	Kinds   []EventKind
}

// NotificationEndpoint is a configured delivery destination.
type NotificationEndpoint struct {
	ID          string
	Name        string
	Type        ChannelType
	Enabled     bool
	OwnerUserID *string
	Filter      EventFilter
	Config      map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsGlobal reports whether the endpoint is not owned by a user.
func (e NotificationEndpoint) IsGlobal() bool {
	return e.OwnerUserID == nil || strings.TrimSpace(*e.OwnerUserID) == ""
}

// AcceptsEvent applies the enablement and event-filter checks.
//
// An empty explicit kind list accepts every kind, while a bitmask filter
// only matches an event with a non-zero mask that it fully contains. The
// two paths disagree on the "empty" case and are kept that way.
func (e NotificationEndpoint) AcceptsEvent(kind EventKind, ignoreFilters bool) bool {
	if !e.Enabled {
		return false
	}
	if ignoreFilters {
		return true
	}

	if mask := kind.Mask(); e.Filter.Bitmask && mask != 0 {
		return e.Filter.Types&mask == mask
	}

	if len(e.Filter.Kinds) == 0 {
		return true
	}
	for _, k := range e.Filter.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (e *NotificationEndpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: endpoint name is required", ErrValidation)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: invalid channel type %q", ErrValidation, e.Type)
	}
	for _, k := range e.Filter.Kinds {
		if !k.IsValid() {
			return fmt.Errorf("%w: invalid event kind %q in filter", ErrValidation, k)
		}
	}
	return nil
}
