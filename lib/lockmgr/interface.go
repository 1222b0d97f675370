package lockmgr

import "context"

// ILockManager hands out mutually exclusive locks identified by a string key.
type ILockManager interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// The returned release function must be called exactly once; further calls are no-ops.
	Acquire(ctx context.Context, key string) (release func(), err error)

	// TryAcquire takes the lock for key only if it is free.
	TryAcquire(key string) (release func(), ok bool)

	// Len returns the number of keys that are currently locked or waited for.
	Len() int
}
