package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const (
	DefaultTimeout = 8 * time.Second
	MinTimeout     = 5 * time.Second
	MaxTimeout     = 10 * time.Second
)

// Adapter delivers a rendered message to one channel type. Send performs
// exactly one outbound call and never retries.
type Adapter interface {
	Type() domain.ChannelType
	Shape() message.Shape
	Send(ctx context.Context, config map[string]string, msg message.Message) error
}

// NormalizeTimeout clamps an adapter timeout into the supported range.
func NormalizeTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	}
	return d
}

func configValue(config map[string]string, key string) string {
	if config == nil {
		return ""
	}
	return strings.TrimSpace(config[key])
}

func requireValue(config map[string]string, key string, label string) (string, error) {
	value := configValue(config, key)
	if value == "" {
		return "", Skipf("%s is not configured", label)
	}
	return value, nil
}

func requireURL(config map[string]string, key string, label string) (string, error) {
	raw, err := requireValue(config, key, label)
	if err != nil {
		return "", err
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", Skip(fmt.Sprintf("%s is invalid", label), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", Skipf("%s must use http or https", label)
	}
	if parsed.Host == "" {
		return "", Skipf("%s has no host", label)
	}
	return raw, nil
}

func optionalURL(config map[string]string, key string, label string, fallback string) (string, error) {
	if configValue(config, key) == "" {
		return fallback, nil
	}
	return requireURL(config, key, label)
}

func optionalInt(config map[string]string, key string, label string, fallback int, min int, max int) (int, error) {
	raw := configValue(config, key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, Skip(fmt.Sprintf("%s must be a number", label), err)
	}
	if value < min || value > max {
		return 0, Skipf("%s must be between %d and %d", label, min, max)
	}
	return value, nil
}

func optionalBool(config map[string]string, key string) bool {
	value, err := strconv.ParseBool(configValue(config, key))
	return err == nil && value
}

func joinURL(base string, path ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range path {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
