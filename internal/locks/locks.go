// Package locks provides the mutual exclusion used to keep background jobs from
// running on more than one instance at a time.
//
// With Redis configured, locks use the Redlock implementation from
// go-redsync/redsync/v4. Without Redis a process-local locker is used.
package locks

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrNotAcquired is returned when another holder owns the lock
var ErrNotAcquired = stderrors.New("lock is held by another owner")

// Lock is an acquired lock
type Lock interface {
	Key() string
	Release(ctx context.Context) error
	IsHeld() bool
}

// Locker acquires named locks. Acquire does not wait: it fails with
// ErrNotAcquired when the lock is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, expiration time.Duration) (Lock, error)
}
