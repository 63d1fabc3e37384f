package lock

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to COURTSIDE_TEST_REDIS_ADDR or skips the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("COURTSIDE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COURTSIDE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	return client
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("courtside:test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestRedis_AcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedis(client, 5*time.Second, 0, 0)
	ctx := context.Background()
	key := testKey(t)

	token, ok, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	assert.ErrorIs(t, l.Release(ctx, key, "not-the-token"), ErrNotHeld)
	require.NoError(t, l.Release(ctx, key, token))

	token, ok, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(ctx, key, token))
}

func TestRedis_RetriesUntilReleased(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	key := testKey(t)

	holder := NewRedis(client, 5*time.Second, 0, 0)
	token, ok, err := holder.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = holder.Release(ctx, key, token)
	}()

	waiter := NewRedis(client, 5*time.Second, 20, 10*time.Millisecond)
	token2, ok, err := waiter.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, waiter.Release(ctx, key, token2))
}

func TestRedis_ExpiresAfterTTL(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	key := testKey(t)

	l := NewRedis(client, 50*time.Millisecond, 0, 0)
	stale, ok, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	fresh, ok, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, l.Release(ctx, key, stale), ErrNotHeld, "expired holder must not free the new lock")
	require.NoError(t, l.Release(ctx, key, fresh))
}

func TestRedis_ReleaseValidatesArgs(t *testing.T) {
	l := NewRedis(nil, time.Second, 0, 0)
	assert.Error(t, l.Release(context.Background(), "", "t"))
}
