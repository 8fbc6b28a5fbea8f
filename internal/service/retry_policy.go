package service

import "time"

const (
	DefaultMaxRetries  = 1
	DefaultBaseBackoff = 600 * time.Millisecond
	MaxBackoff         = 5 * time.Second
)

// RetryPolicy bounds the attempt loop of one endpoint delivery.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, BaseBackoff: DefaultBaseBackoff}
}

// RetryOverride replaces individual policy fields for one call. Nil fields
// keep the process-wide value.
type RetryOverride struct {
	MaxRetries  *int
	BaseBackoff *time.Duration
}

// Resolve applies o on top of p. Negative values are treated as zero.
func (p RetryPolicy) Resolve(o RetryOverride) RetryPolicy {
	out := p
	if o.MaxRetries != nil {
		out.MaxRetries = *o.MaxRetries
	}
	if o.BaseBackoff != nil {
		out.BaseBackoff = *o.BaseBackoff
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.BaseBackoff < 0 {
		out.BaseBackoff = 0
	}
	return out
}

// MaxAttempts is the total number of sends the policy allows.
func (p RetryPolicy) MaxAttempts() int {
	return p.MaxRetries + 1
}

// Backoff returns the wait after failed attempt n (1-based), i.e.
// min(MaxBackoff, BaseBackoff * 2^(n-1)).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.BaseBackoff <= 0 {
		return 0
	}

	delay := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= MaxBackoff {
			return MaxBackoff
		}
	}
	return min(delay, MaxBackoff)
}
