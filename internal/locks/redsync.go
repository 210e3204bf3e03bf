package locks

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"portfolio-api/internal/common/errors"

	goredislib "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// RedsyncLocker implements Locker with the Redlock algorithm
type RedsyncLocker struct {
	redsync *redsync.Redsync
}

// RedsyncLock wraps a redsync.Mutex and renews it until released
type RedsyncLock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
}

// NewRedsyncLocker creates a locker backed by client
func NewRedsyncLocker(client *goredislib.Client) (*RedsyncLocker, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required")
	}

	pool := goredis.NewPool(client)
	return &RedsyncLocker{redsync: redsync.New(pool)}, nil
}

// Acquire takes the lock "lock:<key>" or fails immediately
func (l *RedsyncLocker) Acquire(ctx context.Context, key string, expiration time.Duration) (Lock, error) {
	mutex := l.redsync.NewMutex(fmt.Sprintf("lock:%s", key),
		redsync.WithExpiry(expiration),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if held(err) {
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, err)
		}
		return nil, errors.StoreError("acquire lock "+key, err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &RedsyncLock{
		mutex:      mutex,
		key:        key,
		expiration: expiration,
		ctx:        lockCtx,
		cancel:     cancel,
	}

	go lock.renew()

	return lock, nil
}

// held reports whether a lock error means another owner has the lock, as opposed
// to Redis being unreachable
func held(err error) bool {
	var taken *redsync.ErrTaken
	return stderrors.Is(err, redsync.ErrFailed) || stderrors.As(err, &taken)
}

// renew extends the lock at a third of its expiration until released or lost
func (rl *RedsyncLock) renew() {
	renewInterval := rl.expiration / 3
	if renewInterval < time.Second {
		renewInterval = time.Second
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := rl.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				rl.cancel()
				return
			}
		}
	}
}

// Key returns the lock name
func (rl *RedsyncLock) Key() string {
	return rl.key
}

// Release stops renewal and deletes the lock in Redis
func (rl *RedsyncLock) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		rl.cancel()
		if _, unlockErr := rl.mutex.UnlockContext(ctx); unlockErr != nil {
			err = errors.StoreError("release lock", unlockErr)
		}
	})
	return err
}

// IsHeld reports whether the lock has been neither released nor lost
func (rl *RedsyncLock) IsHeld() bool {
	select {
	case <-rl.ctx.Done():
		return false
	default:
		return true
	}
}
