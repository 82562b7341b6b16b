package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLease_SerializesSameCase(t *testing.T) {
	leases := newLeaseTable()
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := leases.acquire(context.Background(), "case-1")
			require.NoError(t, err)
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, leases.size())
}

func TestLease_DifferentCasesDoNotContend(t *testing.T) {
	leases := newLeaseTable()
	r1, err := leases.acquire(context.Background(), "case-1")
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r2, err := leases.acquire(ctx, "case-2")
	require.NoError(t, err)
	r2()
}

func TestLease_RespectsDeadline(t *testing.T) {
	leases := newLeaseTable()
	release, err := leases.acquire(context.Background(), "case-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = leases.acquire(ctx, "case-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, leases.size())

	release()
	release()
	assert.Zero(t, leases.size())
}
