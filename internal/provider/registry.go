package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
	"github.com/kursadbilgin/notify-engine/internal/ratelimit"
)

// Registry maps channel types to adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.ChannelType]Adapter
	limiter  ratelimit.RateLimiter
}

// NewRegistry returns an empty registry. A non-nil limiter is applied to
// every adapter registered afterwards.
func NewRegistry(limiter ratelimit.RateLimiter) *Registry {
	return &Registry{
		adapters: make(map[domain.ChannelType]Adapter),
		limiter:  limiter,
	}
}

// NewDefaultRegistry registers every built-in adapter sharing one HTTP client.
func NewDefaultRegistry(client *resty.Client, limiter ratelimit.RateLimiter) (*Registry, error) {
	client = ensureClient(client)
	timeout := client.GetClient().Timeout

	r := NewRegistry(limiter)
	adapters := []Adapter{
		NewDiscordAdapter(client),
		NewSlackAdapter(client),
		NewWebhookAdapter(client),
		NewTelegramAdapter(timeout),
		NewGotifyAdapter(client),
		NewNtfyAdapter(client),
		NewPushbulletAdapter(client),
		NewPushoverAdapter(client),
		NewEmailAdapter(timeout),
	}
	for _, adapter := range adapters {
		if err := r.Register(adapter); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds adapter for its channel type, replacing any previous one.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is required")
	}
	channelType := adapter.Type()
	if !channelType.IsValid() {
		return fmt.Errorf("%w: invalid channel type %q", domain.ErrValidation, channelType)
	}

	if r.limiter != nil {
		adapter = &limitedAdapter{Adapter: adapter, limiter: r.limiter}
	}

	r.mu.Lock()
	r.adapters[channelType] = adapter
	r.mu.Unlock()
	return nil
}

func (r *Registry) Lookup(channelType domain.ChannelType) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	adapter, ok := r.adapters[channelType]
	r.mu.RUnlock()
	return adapter, ok
}

// Types lists registered channel types.
func (r *Registry) Types() []domain.ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ChannelType, 0, len(r.adapters))
	for _, known := range domain.ChannelTypes() {
		if _, ok := r.adapters[known]; ok {
			out = append(out, known)
		}
	}
	return out
}

type limitedAdapter struct {
	Adapter
	limiter ratelimit.RateLimiter
}

func (a *limitedAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	if err := a.limiter.Wait(ctx, a.Type().String()); err != nil {
		return &ProviderError{Message: "outbound rate limit wait failed", Cause: err}
	}
	return a.Adapter.Send(ctx, config, msg)
}
