// Package lockmgr provides keyed mutual exclusion inside one process.
//
// The document store takes one lock per owner key so that the read, check
// and write steps of an operation on one owner never interleave with another
// operation on the same owner, while operations on different owners run in
// parallel.
//
// Implementation Approach:
//
//	Every key maps to a one-slot channel used as a semaphore, stored in an
//	xsync.MapOf together with a reference count. Acquire and TryAcquire
//	increment the count atomically through MapOf.Compute before waiting on
//	the semaphore; releasing decrements it and deletes the entry once nobody
//	holds or waits for the key. The map therefore only ever contains keys
//	that are in use.
//
//	Waiting respects context cancellation, so callers can bound how long
//	they queue behind a slow operation.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager()
//
//	release, err := locks.Acquire(ctx, "owner:CCA1234")
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// Locks are not reentrant: acquiring a key twice from the same goroutine
// without releasing it deadlocks (or blocks until ctx is done).
package lockmgr
