package service

import (
	"testing"
	"time"
)

func TestRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{name: "first retry waits base", base: 600 * time.Millisecond, attempt: 1, want: 600 * time.Millisecond},
		{name: "second retry doubles", base: 600 * time.Millisecond, attempt: 2, want: 1200 * time.Millisecond},
		{name: "third retry doubles again", base: 600 * time.Millisecond, attempt: 3, want: 2400 * time.Millisecond},
		{name: "ceiling applies", base: 600 * time.Millisecond, attempt: 5, want: MaxBackoff},
		{name: "large base clamps immediately", base: 8 * time.Second, attempt: 1, want: MaxBackoff},
		{name: "zero base means no wait", base: 0, attempt: 3, want: 0},
		{name: "attempt below one is treated as one", base: time.Second, attempt: 0, want: time.Second},
		{name: "very large attempt stays at ceiling", base: time.Millisecond, attempt: 200, want: MaxBackoff},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := RetryPolicy{BaseBackoff: tt.base}.Backoff(tt.attempt)
			if got != tt.want {
				t.Fatalf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyResolvePrecedence(t *testing.T) {
	t.Parallel()

	process := RetryPolicy{MaxRetries: 3, BaseBackoff: 100 * time.Millisecond}

	if got := process.Resolve(RetryOverride{}); got != process {
		t.Fatalf("Resolve(empty) = %+v, want %+v", got, process)
	}

	backoff := 50 * time.Millisecond
	got := process.Resolve(RetryOverride{MaxRetries: intPtr(0), BaseBackoff: &backoff})
	if got.MaxRetries != 0 || got.BaseBackoff != backoff {
		t.Fatalf("Resolve(override) = %+v, want MaxRetries=0 BaseBackoff=50ms", got)
	}

	got = process.Resolve(RetryOverride{MaxRetries: intPtr(-4)})
	if got.MaxRetries != 0 {
		t.Fatalf("Resolve(negative) MaxRetries = %d, want 0", got.MaxRetries)
	}
	if got.MaxAttempts() != 1 {
		t.Fatalf("MaxAttempts() = %d, want 1", got.MaxAttempts())
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()
	if policy.MaxRetries != 1 || policy.BaseBackoff != 600*time.Millisecond {
		t.Fatalf("DefaultRetryPolicy() = %+v, want 1 retry and 600ms", policy)
	}
}
