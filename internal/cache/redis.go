// Package cache owns the optional Redis connection: the rate limiter's bucket
// store and the lock that keeps background sweeps to one instance.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Connect returns nil, nil when no address is configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// Probe adapts a client to the readiness check.
type Probe struct {
	Client *redis.Client
}

func (p Probe) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
