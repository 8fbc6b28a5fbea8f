package domain

import (
	"errors"
	"testing"
)

func TestParseEventKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    EventKind
		wantErr bool
	}{
		{name: "request status kind", input: "media_available", want: EventMediaAvailable},
		{name: "system alert with spaces and case", input: " SYSTEM_ALERT_SERVICE_UNREACHABLE ", want: EventSystemServiceUnreachable},
		{name: "unknown kind", input: "media_exploded", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseEventKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseEventKind() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEventKind() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseEventKind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEventKindMask(t *testing.T) {
	t.Parallel()

	if got := EventIssueCreated.Mask(); got != 256 {
		t.Fatalf("issue_created mask = %d, want 256", got)
	}
	if got := EventTestNotification.Mask(); got != 32 {
		t.Fatalf("test_notification mask = %d, want 32", got)
	}
	if got := EventSystemServiceUnreachable.Mask(); got != 0 {
		t.Fatalf("system alert mask = %d, want 0", got)
	}
	if !EventSystemServiceUnreachable.IsSystemAlert() {
		t.Fatal("service unreachable should be a system alert")
	}
	if EventMediaPending.IsSystemAlert() {
		t.Fatal("media_pending should not be a system alert")
	}
}

func TestParseChannelType(t *testing.T) {
	t.Parallel()

	got, err := ParseChannelType(" Discord ")
	if err != nil {
		t.Fatalf("ParseChannelType() unexpected error: %v", err)
	}
	if got != ChannelDiscord {
		t.Fatalf("ParseChannelType() = %s, want %s", got, ChannelDiscord)
	}

	if _, err := ParseChannelType("fax"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseChannelType() error = %v, want ErrValidation", err)
	}

	if got := len(ChannelTypes()); got != 9 {
		t.Fatalf("ChannelTypes() len = %d, want 9", got)
	}
}

func TestEventContextValidate(t *testing.T) {
	t.Parallel()

	if err := (EventContext{Subject: "Plex is down"}).Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if err := (EventContext{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	if err := (EventContext{Subject: "x", Severity: "panic"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestParseDeliveryStatus(t *testing.T) {
	t.Parallel()

	got, err := ParseDeliveryStatus("SKIPPED")
	if err != nil {
		t.Fatalf("ParseDeliveryStatus() unexpected error: %v", err)
	}
	if got != DeliverySkipped {
		t.Fatalf("ParseDeliveryStatus() = %s, want %s", got, DeliverySkipped)
	}
	if _, err := ParseDeliveryStatus("retrying"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseDeliveryStatus() error = %v, want ErrValidation", err)
	}
}
