// Package lock serializes engine operations on the shared ownership state.
//
// Local is the default and covers a single process. Redis extends the same
// guarantee to several processes sharing one database file.
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotHeld is returned by Release when the token does not own the lock.
var ErrNotHeld = errors.New("lock not held by token")

// Manager acquires and releases named locks.
//
// Acquire returns ok=false without an error when the lock stayed busy for
// the whole retry budget. The returned token must be passed to Release.
type Manager interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

func newToken() string {
	return uuid.Must(uuid.NewV7()).String()
}
