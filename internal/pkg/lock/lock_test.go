// Property-based tests for keyed locking.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestSerializedMutationProperty: concurrent read-modify-write under one key
// produces the same total as sequential execution.
func TestSerializedMutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(0, 100).Draw(t, "start")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		key := rapid.StringMatching(`team-[a-z]{1,8}`).Draw(t, "key")

		deltas := make([]int, numOps)
		want := start
		for i := range deltas {
			deltas[i] = rapid.IntRange(-3, 3).Draw(t, "delta")
			want += deltas[i]
		}

		kl := NewKeyLock()
		position := start

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(d int) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				position += d
			}(d)
		}
		wg.Wait()

		if position != want {
			t.Fatalf("position mismatch: expected %d, got %d", want, position)
		}
	})
}

// TestIndependentKeysProperty: locks for different keys never interfere.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 8).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := NewKeyLock()
		counters := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(k int) {
					defer wg.Done()
					key := fmt.Sprintf("team%d", k)
					kl.Lock(key)
					defer kl.Unlock(key)
					counters[k]++
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d, got %d", k, opsPerKey, c)
			}
		}
	})
}

// TestHeldKeyTimesOutProperty: while one holder has the key, every
// WithLockContext call times out without running fn, and after release the
// key can be taken again.
func TestHeldKeyTimesOutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "key")
		attempts := rapid.IntRange(2, 8).Draw(t, "attempts")

		kl := NewKeyLock()
		kl.Lock(key)

		var ran atomic.Int32
		var timeouts atomic.Int32
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				err := kl.WithLockContext(context.Background(), key, time.Millisecond, func() error {
					ran.Add(1)
					return nil
				})
				if errors.Is(err, ErrLockTimeout) {
					timeouts.Add(1)
				}
			}()
		}
		wg.Wait()
		kl.Unlock(key)

		if ran.Load() != 0 {
			t.Fatalf("fn ran %d times while key was held", ran.Load())
		}
		if int(timeouts.Load()) != attempts {
			t.Fatalf("expected %d timeouts, got %d", attempts, timeouts.Load())
		}
		if !kl.LockWithTimeout(context.Background(), key, time.Second) {
			t.Fatal("lock should be available after release")
		}
		kl.Unlock(key)
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("red")

	called := false
	err := kl.WithLockContext(context.Background(), "red", 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	kl.Unlock("red")

	// The abandoned waiter releases the lock once it gets it.
	assert.NoError(t, kl.WithLockContext(context.Background(), "red", time.Second, func() error { return nil }))
}

func TestWithLockContext_Cancelled(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("blue")
	defer kl.Unlock("blue")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.WithLockContext(ctx, "blue", time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockContext_PropagatesError(t *testing.T) {
	kl := NewKeyLock()
	boom := fmt.Errorf("boom")

	err := kl.WithLockContext(context.Background(), "green", time.Second, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, kl.LockWithTimeout(context.Background(), "green", 0), "lock released after fn error")
	kl.Unlock("green")
}

func TestLockWithTimeout_WaitsForRelease(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("team")

	go func() {
		time.Sleep(10 * time.Millisecond)
		kl.Unlock("team")
	}()

	assert.True(t, kl.LockWithTimeout(context.Background(), "team", time.Second))
	kl.Unlock("team")
}
