package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_AcquireRelease(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	token, ok, err := l.Acquire(ctx, "state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, token, 36)

	require.NoError(t, l.Release(ctx, "state", token))
	assert.ErrorIs(t, l.Release(ctx, "state", token), ErrNotHeld, "double release")
}

func TestLocal_WrongToken(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	token, ok, err := l.Acquire(ctx, "state")
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, l.Release(ctx, "state", "someone-else"), ErrNotHeld)
	assert.ErrorIs(t, l.Release(ctx, "other", token), ErrNotHeld)
	assert.Error(t, l.Release(ctx, "", ""))
	require.NoError(t, l.Release(ctx, "state", token))
}

func TestLocal_BlocksUntilContextDone(t *testing.T) {
	l := NewLocal()

	token, _, err := l.Acquire(context.Background(), "state")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err := l.Acquire(ctx, "state")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, l.Release(context.Background(), "state", token))
}

func TestLocal_KeysAreIndependent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, ok, err := l.Acquire(ctx, "state")
			if err != nil || !ok {
				t.Errorf("Acquire: ok=%v err=%v", ok, err)
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			if err := l.Release(ctx, "state", token); err != nil {
				t.Errorf("Release: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}
