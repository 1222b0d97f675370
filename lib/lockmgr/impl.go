package lockmgr

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// keyLock is a one-slot semaphore plus the number of goroutines holding or
// waiting for it. The entry is removed from the map when refs drops to zero.
type keyLock struct {
	sem  chan struct{}
	refs int
}

type lockMgrImpl struct {
	locks *xsync.MapOf[string, *keyLock]
}

// NewLockManager returns an empty in-process lock manager.
func NewLockManager() ILockManager {
	return &lockMgrImpl{
		locks: xsync.NewMapOf[string, *keyLock](),
	}
}

func (lm *lockMgrImpl) Acquire(ctx context.Context, key string) (func(), error) {
	l := lm.ref(key)
	select {
	case l.sem <- struct{}{}:
		return lm.releaser(key, l), nil
	case <-ctx.Done():
		lm.unref(key)
		return nil, ctx.Err()
	}
}

func (lm *lockMgrImpl) TryAcquire(key string) (func(), bool) {
	l := lm.ref(key)
	select {
	case l.sem <- struct{}{}:
		return lm.releaser(key, l), true
	default:
		lm.unref(key)
		return nil, false
	}
}

func (lm *lockMgrImpl) Len() int {
	return lm.locks.Size()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// ref returns the lock for key, creating it if needed, and counts the caller.
func (lm *lockMgrImpl) ref(key string) *keyLock {
	l, _ := lm.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, bool) {
		if !loaded {
			old = &keyLock{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})
	return l
}

// unref drops the caller's reference and deletes the lock when unused.
func (lm *lockMgrImpl) unref(key string) {
	lm.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, bool) {
		if !loaded {
			return nil, true
		}
		old.refs--
		return old, old.refs <= 0
	})
}

func (lm *lockMgrImpl) releaser(key string, l *keyLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			lm.unref(key)
		})
	}
}
