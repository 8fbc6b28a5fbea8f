package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus is the outcome of one attempt or of a whole delivery.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailure DeliveryStatus = "failure"
	DeliverySkipped DeliveryStatus = "skipped"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliverySuccess, DeliveryFailure, DeliverySkipped:
		return true
	}
	return false
}

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}

// DeliveryAttempt records a single send attempt for one endpoint and event.
type DeliveryAttempt struct {
	ID            string
	EndpointID    string
	EndpointType  ChannelType
	EventKind     EventKind
	AttemptNumber int
	Status        DeliveryStatus
	DurationMs    int64
	ErrorMessage  *string
	TargetUserID  *string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// DeliveryResult is the aggregate outcome of the retry loop for one endpoint.
type DeliveryResult struct {
	Status   DeliveryStatus
	Attempts int
	Retries  int
	Error    *string
}
