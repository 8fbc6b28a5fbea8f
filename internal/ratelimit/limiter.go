package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound sends per channel type.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}

const DefaultPerSecond = 10

var _ RateLimiter = (*LocalLimiter)(nil)

// LocalLimiter is an in-process token bucket per channel. It is used when no
// Redis is configured.
type LocalLimiter struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func NewLocalLimiter(perSecond int) *LocalLimiter {
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	return &LocalLimiter{
		perSec:   rate.Limit(perSecond),
		burst:    perSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, channel string) (bool, error) {
	limiter, err := l.forChannel(channel)
	if err != nil {
		return false, err
	}
	return limiter.Allow(), nil
}

func (l *LocalLimiter) Wait(ctx context.Context, channel string) error {
	limiter, err := l.forChannel(channel)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return limiter.Wait(ctx)
}

func (l *LocalLimiter) forChannel(channel string) (*rate.Limiter, error) {
	key := NormalizeChannel(channel)
	if key == "" {
		return nil, fmt.Errorf("channel is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.perSec, l.burst)
		l.limiters[key] = limiter
	}
	return limiter, nil
}

func NormalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimSpace(channel))
}
