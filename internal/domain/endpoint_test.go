package domain

import (
	"errors"
	"testing"
)

func TestNotificationEndpointAcceptsEvent(t *testing.T) {
	t.Parallel()

	issueMask := EventIssueCreated.Mask() | EventIssueResolved.Mask()

	tests := []struct {
		name          string
		endpoint      NotificationEndpoint
		kind          EventKind
		ignoreFilters bool
		want          bool
	}{
		{
			name:     "disabled endpoint is never eligible",
			endpoint: NotificationEndpoint{Enabled: false},
			kind:     EventIssueCreated,
		},
		{
			name:          "disabled endpoint stays excluded when filters are ignored",
			endpoint:      NotificationEndpoint{Enabled: false},
			kind:          EventIssueCreated,
			ignoreFilters: true,
		},
		{
			name: "ignore filters bypasses a non-matching bitmask",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Bitmask: true, Types: EventMediaPending.Mask()},
			},
			kind:          EventIssueCreated,
			ignoreFilters: true,
			want:          true,
		},
		{
			name: "bitmask containing the event mask",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Bitmask: true, Types: issueMask},
			},
			kind: EventIssueResolved,
			want: true,
		},
		{
			name: "bitmask missing the event mask",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Bitmask: true, Types: issueMask},
			},
			kind: EventMediaAvailable,
		},
		{
			name: "zero bitmask has no match-all default",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Bitmask: true},
			},
			kind: EventIssueCreated,
		},
		{
			name: "explicit kind list membership",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Kinds: []EventKind{EventSystemServiceUnreachable}},
			},
			kind: EventSystemServiceUnreachable,
			want: true,
		},
		{
			name: "explicit kind list without the kind",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Kinds: []EventKind{EventSystemUpdateAvailable}},
			},
			kind: EventSystemServiceUnreachable,
		},
		{
			name:     "empty explicit list accepts every kind",
			endpoint: NotificationEndpoint{Enabled: true},
			kind:     EventIssueComment,
			want:     true,
		},
		{
			name: "bitmask endpoint falls back to kind list for unmasked events",
			endpoint: NotificationEndpoint{
				Enabled: true,
				Filter:  EventFilter{Bitmask: true, Types: issueMask},
			},
			kind: EventSystemHealthDegraded,
			want: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.endpoint.AcceptsEvent(tt.kind, tt.ignoreFilters); got != tt.want {
				t.Fatalf("AcceptsEvent(%s, %v) = %v, want %v", tt.kind, tt.ignoreFilters, got, tt.want)
			}
		})
	}
}

func TestNotificationEndpointIsGlobal(t *testing.T) {
	t.Parallel()

	owner := "user-1"
	blank := "  "

	if !(NotificationEndpoint{}).IsGlobal() {
		t.Fatal("endpoint without owner should be global")
	}
	if !(NotificationEndpoint{OwnerUserID: &blank}).IsGlobal() {
		t.Fatal("endpoint with blank owner should be global")
	}
	if (NotificationEndpoint{OwnerUserID: &owner}).IsGlobal() {
		t.Fatal("owned endpoint should not be global")
	}
}

func TestNotificationEndpointValidate(t *testing.T) {
	t.Parallel()

	base := NotificationEndpoint{Name: "ops", Type: ChannelDiscord, Enabled: true}

	tests := []struct {
		name    string
		mutate  func(*NotificationEndpoint)
		wantErr bool
	}{
		{name: "valid endpoint", mutate: func(e *NotificationEndpoint) {}},
		{name: "missing name", mutate: func(e *NotificationEndpoint) { e.Name = " " }, wantErr: true},
		{name: "unknown type", mutate: func(e *NotificationEndpoint) { e.Type = "fax" }, wantErr: true},
		{
			name:    "unknown kind in filter",
			mutate:  func(e *NotificationEndpoint) { e.Filter.Kinds = []EventKind{"nope"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}
