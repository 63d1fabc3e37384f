package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a distributed Manager built on SET NX with a TTL.
// The TTL bounds how long a crashed holder can block everyone else.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
}

// NewRedis returns a lock manager over client. Acquire tries retries+1
// times, sleeping backoff between attempts.
func NewRedis(client *redis.Client, ttl time.Duration, retries int, backoff time.Duration) *Redis {
	return &Redis{
		client:  client,
		ttl:     ttl,
		retries: retries,
		backoff: backoff,
	}
}

func (l *Redis) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := newToken()
	for attempt := 0; attempt <= l.retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return token, true, nil
		}
		if attempt < l.retries {
			select {
			case <-time.After(l.backoff):
			case <-ctx.Done():
				return "", false, ctx.Err()
			}
		}
	}
	return "", false, nil
}

// Release deletes key only if it still holds token, so an expired holder
// cannot free a lock that has since been taken by someone else.
func (l *Redis) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return errors.New("key and token are required")
	}
	n, err := releaseLua.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

var releaseLua = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)
