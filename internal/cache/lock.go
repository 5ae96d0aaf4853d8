package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive leases. Without a client every
// acquisition succeeds, which is right for a single instance.
type Locker struct {
	client *redis.Client
	prefix string
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Acquire tries to take name for ttl. The returned release func is safe to
// call after the lease expired.
func (l *Locker) Acquire(ctx context.Context, name, token string, ttl time.Duration) (bool, func(context.Context) error, error) {
	if l.client == nil {
		return true, func(context.Context) error { return nil }, nil
	}

	key := l.key(name)
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return true, release, nil
}

func (l *Locker) key(name string) string {
	return l.prefix + ":lock:" + name
}
