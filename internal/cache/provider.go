package cache

// Package cache provides short-lived key storage used to suppress replayed
// webhook deliveries. Reconciliation stays idempotent without it; the cache
// only saves redundant work.

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("key not found")

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// EventKey names the dedup entry for a provider event.
func EventKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}
