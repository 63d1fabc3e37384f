package lock

import (
	"context"
	"errors"
	"sync"
)

// Local is an in-process Manager. Each key is a one-slot semaphore, so
// Acquire blocks until the holder releases or ctx is done.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem   chan struct{}
	token string
}

// NewLocal returns an empty in-process lock manager.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) slot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	return s
}

// Acquire waits for key. A cancelled or expired ctx yields ok=false and
// the context error.
func (l *Local) Acquire(ctx context.Context, key string) (string, bool, error) {
	s := l.slot(key)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}

	token := newToken()
	l.mu.Lock()
	s.token = token
	l.mu.Unlock()
	return token, true, nil
}

// Release frees key if token is the current holder.
func (l *Local) Release(_ context.Context, key, token string) error {
	if key == "" || token == "" {
		return errors.New("key and token are required")
	}

	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok || s.token != token {
		l.mu.Unlock()
		return ErrNotHeld
	}
	s.token = ""
	l.mu.Unlock()

	<-s.sem
	return nil
}
