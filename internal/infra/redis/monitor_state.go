package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const monitorKeyPrefix = "notify:monitor"

// MonitorStateStore remembers which monitored targets are currently down so
// that restarts and sibling instances do not re-alert the same outage.
type MonitorStateStore struct {
	client goredis.UniversalClient
}

func NewMonitorStateStore(client goredis.UniversalClient) (*MonitorStateStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &MonitorStateStore{client: client}, nil
}

// MarkDown records target as down and reports whether it was up before.
func (s *MonitorStateStore) MarkDown(ctx context.Context, target string) (bool, error) {
	changed, err := s.client.SetNX(ctx, monitorKey(target), "down", 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s down: %w", target, err)
	}
	return changed, nil
}

// MarkUp clears the down marker and reports whether one existed.
func (s *MonitorStateStore) MarkUp(ctx context.Context, target string) (bool, error) {
	removed, err := s.client.Del(ctx, monitorKey(target)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s up: %w", target, err)
	}
	return removed > 0, nil
}

func (s *MonitorStateStore) IsDown(ctx context.Context, target string) (bool, error) {
	_, err := s.client.Get(ctx, monitorKey(target)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s state: %w", target, err)
	}
	return true, nil
}

func monitorKey(target string) string {
	return monitorKeyPrefix + ":" + target
}
