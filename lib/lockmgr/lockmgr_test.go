package lockmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager()

	release, err := lm.Acquire(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, lm.Len())

	_, ok := lm.TryAcquire("A")
	assert.False(t, ok, "lock is held")

	other, ok := lm.TryAcquire("B")
	require.True(t, ok, "different keys are independent")
	other()

	release()
	release() // no-op
	assert.Equal(t, 0, lm.Len())

	again, ok := lm.TryAcquire("A")
	require.True(t, ok)
	again()
}

func TestAcquireHonoursContext(t *testing.T) {
	lm := NewLockManager()
	release, err := lm.Acquire(context.Background(), "A")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = lm.Acquire(ctx, "A")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, lm.Len(), "the timed out waiter drops its reference")
}

func TestMutualExclusion(t *testing.T) {
	lm := NewLockManager()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lm.Acquire(context.Background(), "shared")
			if err != nil {
				t.Error(err)
				return
			}
			// unsynchronized read-modify-write, safe only under the lock
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, lm.Len())
}
