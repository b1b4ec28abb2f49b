package build

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLock_NoInterleavedReads drives concurrent writers that bump a shared
// counter twice per critical section and readers that must only ever see an
// even value.
func TestLock_NoInterleavedReads(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()
	var counter int64
	var oddReads atomic.Int64

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(writer bool) {
			defer wg.Done()
			for range 50 {
				err := lock.With(ctx, func() error {
					if writer {
						counter++
						time.Sleep(10 * time.Microsecond)
						counter++
						return nil
					}
					if counter%2 != 0 {
						oddReads.Add(1)
					}
					return nil
				})
				assert.NoError(t, err)
			}
		}(i%4 == 0)
	}
	wg.Wait()

	assert.Zero(t, oddReads.Load())
	assert.Equal(t, int64(16*50*2), counter)
}

func TestLock_AcquireRespectsContext(t *testing.T) {
	lock := NewLock()
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLock_ReleaseIsIdempotent(t *testing.T) {
	lock := NewLock()
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	r2, ok := lock.TryAcquire()
	require.True(t, ok)
	_, ok = lock.TryAcquire()
	assert.False(t, ok)
	r2()
}
