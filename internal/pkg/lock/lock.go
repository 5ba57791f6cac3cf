// Package lock provides keyed locking so that turns for one team are
// serialized while other teams proceed independently.
package lock

import (
	"context"
	"sync"
	"time"
)

// KeyLock holds one mutex per key, created on first use.
type KeyLock struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

// get retrieves or creates the mutex for key.
func (kl *KeyLock) get(key string) *sync.Mutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := kl.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key string) {
	kl.get(key).Lock()
}

// Unlock releases the lock for key. Like sync.Mutex, it is a run-time error
// to unlock a key that is not held.
func (kl *KeyLock) Unlock(key string) {
	kl.get(key).Unlock()
}

// LockWithTimeout waits up to timeout for the lock on key. A timeout of
// zero or less waits until ctx is done.
func (kl *KeyLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	m := kl.get(key)
	if m.TryLock() {
		return true
	}

	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
	}()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case <-done:
		return true
	case <-waitCtx.Done():
		// The waiter still owns a pending Lock call; release it once acquired.
		go func() {
			<-done
			m.Unlock()
		}()
		return false
	}
}

// WithLockContext runs fn while holding the lock for key. It returns
// ErrLockTimeout if the lock is not acquired in time.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
