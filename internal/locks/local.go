package locks

import (
	"context"
	"sync"
	"time"
)

// LocalLocker implements Locker within a single process
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

// NewLocalLocker creates a process-local locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:  make(map[string]time.Time),
		nowFn: time.Now,
	}
}

// Acquire takes key until released or expired
func (l *LocalLocker) Acquire(_ context.Context, key string, expiration time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrNotAcquired
	}

	expires := now.Add(expiration)
	l.held[key] = expires
	return &localLock{locker: l, key: key, expires: expires}, nil
}

type localLock struct {
	locker  *LocalLocker
	key     string
	expires time.Time
}

func (ll *localLock) Key() string {
	return ll.key
}

func (ll *localLock) Release(context.Context) error {
	ll.locker.mu.Lock()
	defer ll.locker.mu.Unlock()

	// only release our own acquisition
	if expires, ok := ll.locker.held[ll.key]; ok && expires.Equal(ll.expires) {
		delete(ll.locker.held, ll.key)
	}
	return nil
}

func (ll *localLock) IsHeld() bool {
	ll.locker.mu.Lock()
	defer ll.locker.mu.Unlock()

	expires, ok := ll.locker.held[ll.key]
	return ok && expires.Equal(ll.expires) && ll.locker.nowFn().Before(expires)
}
