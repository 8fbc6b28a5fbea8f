package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/notify-engine/internal/service"
)

type Config struct {
	DatabaseDSN            string `env:"DATABASE_DSN,required=true"`
	RedisURL               string `env:"REDIS_URL"`
	RabbitMQURL            string `env:"RABBITMQ_URL"`
	EventsQueue            string `env:"EVENTS_QUEUE,default=notify.events"`
	APIPort                int    `env:"API_PORT,default=8080"`
	LogLevel               string `env:"LOG_LEVEL,default=info"`
	MaxRetries             int    `env:"NOTIFY_MAX_RETRIES,default=1"`
	BaseBackoffMs          int    `env:"NOTIFY_BASE_BACKOFF_MS,default=600"`
	AdapterTimeoutMs       int    `env:"ADAPTER_TIMEOUT_MS,default=8000"`
	RateLimitPerSec        int    `env:"RATE_LIMIT_PER_SEC,default=10"`
	AdminJWTSecret         string `env:"ADMIN_JWT_SECRET"`
	MonitorSchedule        string `env:"MONITOR_SCHEDULE,default=@every 1m"`
	MonitorTargets         string `env:"MONITOR_TARGETS"`
	EventWorkerConcurrency int    `env:"EVENT_WORKER_CONCURRENCY,default=4"`
}

// MonitorTarget is one named URL probed by the health monitor.
type MonitorTarget struct {
	Name string
	URL  string
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := cfg.Targets(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// RetryPolicy returns the process-wide delivery policy. Negative values
// are clamped to zero.
func (c *Config) RetryPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxRetries:  max(c.MaxRetries, 0),
		BaseBackoff: time.Duration(max(c.BaseBackoffMs, 0)) * time.Millisecond,
	}
}

func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutMs) * time.Millisecond
}

// Targets parses MONITOR_TARGETS, a comma separated list of name=url pairs.
// A bare url is named after itself.
func (c *Config) Targets() ([]MonitorTarget, error) {
	var targets []MonitorTarget
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(c.MonitorTargets, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		name, url := raw, raw
		if before, after, ok := strings.Cut(raw, "="); ok {
			name, url = strings.TrimSpace(before), strings.TrimSpace(after)
		}
		if name == "" || url == "" {
			return nil, fmt.Errorf("invalid monitor target %q", raw)
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("monitor target %q must be an http(s) url", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate monitor target %q", name)
		}
		seen[name] = struct{}{}
		targets = append(targets, MonitorTarget{Name: name, URL: url})
	}

	return targets, nil
}
