package domain

import (
	"fmt"
	"strings"
)

// EventKind names a category of occurrence that can trigger delivery.
type EventKind string

const (
	EventMediaPending       EventKind = "media_pending"
	EventMediaApproved      EventKind = "media_approved"
	EventMediaAvailable     EventKind = "media_available"
	EventMediaFailed        EventKind = "media_failed"
	EventTestNotification   EventKind = "test_notification"
	EventMediaDeclined      EventKind = "media_declined"
	EventMediaAutoApproved  EventKind = "media_auto_approved"
	EventIssueCreated       EventKind = "issue_created"
	EventIssueComment       EventKind = "issue_comment"
	EventIssueResolved      EventKind = "issue_resolved"
	EventIssueReopened      EventKind = "issue_reopened"
	EventMediaAutoRequested EventKind = "media_auto_requested"

	EventSystemServiceUnreachable EventKind = "system_alert_service_unreachable"
	EventSystemHealthDegraded     EventKind = "system_alert_health_degraded"
	EventSystemUpdateAvailable    EventKind = "system_alert_update_available"
)

// Bitmask values for request-status events. System alerts have no bit and
// are matched through the explicit kind list only.
var eventMasks = map[EventKind]uint64{
	EventMediaPending:       1 << 1,
	EventMediaApproved:      1 << 2,
	EventMediaAvailable:     1 << 3,
	EventMediaFailed:        1 << 4,
	EventTestNotification:   1 << 5,
	EventMediaDeclined:      1 << 6,
	EventMediaAutoApproved:  1 << 7,
	EventIssueCreated:       1 << 8,
	EventIssueComment:       1 << 9,
	EventIssueResolved:      1 << 10,
	EventIssueReopened:      1 << 11,
	EventMediaAutoRequested: 1 << 12,
}

var systemEvents = map[EventKind]struct{}{
	EventSystemServiceUnreachable: {},
	EventSystemHealthDegraded:     {},
	EventSystemUpdateAvailable:    {},
}

func (k EventKind) String() string { return string(k) }

// Mask returns the bitmask flag of the kind, or 0 when it has none.
func (k EventKind) Mask() uint64 {
	return eventMasks[k]
}

func (k EventKind) IsSystemAlert() bool {
	_, ok := systemEvents[k]
	return ok
}

func (k EventKind) IsValid() bool {
	if _, ok := eventMasks[k]; ok {
		return true
	}
	return k.IsSystemAlert()
}

func ParseEventKind(s string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: invalid event kind %q", ErrValidation, s)
	}
	return kind, nil
}

// Severity drives presentation (embed colour, push priority).
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Field is a labelled value rendered in rich messages.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EventContext carries the data every message builder renders from.
type EventContext struct {
	Subject  string            `json:"subject"`
	Message  string            `json:"message,omitempty"`
	Severity Severity          `json:"severity,omitempty"`
	URL      string            `json:"url,omitempty"`
	ImageURL string            `json:"imageUrl,omitempty"`
	Actor    string            `json:"actor,omitempty"`
	Fields   []Field           `json:"fields,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func (c EventContext) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	switch c.Severity {
	case "", SeverityInfo, SeverityWarning, SeverityCritical:
		return nil
	}
	return fmt.Errorf("%w: invalid severity %q", ErrValidation, c.Severity)
}
