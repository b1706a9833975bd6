package internal

import (
	"runtime"
	"sync/atomic"
)

const maxBackoff = 16

// SpinLock is a sync.Locker that yields with exponential backoff instead of parking.
// Critical sections guarded by it must stay short.
type SpinLock struct {
	state atomic.Int32
}

func (sl *SpinLock) Lock() {
	backoff := 1
	for !sl.TryLock() {
		// Leverage the exponential backoff algorithm, see https://en.wikipedia.org/wiki/Exponential_backoff.
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (sl *SpinLock) TryLock() bool {
	return sl.state.CompareAndSwap(0, 1)
}

func (sl *SpinLock) Unlock() {
	if !sl.state.CompareAndSwap(1, 0) {
		panic("unlock of unlocked spinlock")
	}
}
