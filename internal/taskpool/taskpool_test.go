package taskpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitRunsAllTasks(t *testing.T) {
	t.Parallel()

	p := New(4, 16)
	var count int64
	const n = 50
	for i := 0; i < n; i++ {
		p.Submit(func(context.Context) { atomic.AddInt64(&count, 1) })
	}

	require.NoError(t, p.DrainOnShutdown(context.Background()))
	require.Equal(t, int64(n), atomic.LoadInt64(&count))
}

func TestDrainOnShutdownWaitsForInFlight(t *testing.T) {
	t.Parallel()

	p := New(1, 4)
	started := make(chan struct{})
	var finished int32
	p.Submit(func(context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})
	<-started

	require.NoError(t, p.DrainOnShutdown(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestDrainOnShutdownRespectsContextDeadline(t *testing.T) {
	t.Parallel()

	p := New(1, 4)
	p.Submit(func(context.Context) { time.Sleep(200 * time.Millisecond) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.Error(t, p.DrainOnShutdown(ctx))
}

func TestSubmitAfterDrainIsDropped(t *testing.T) {
	t.Parallel()

	p := New(1, 4)
	require.NoError(t, p.DrainOnShutdown(context.Background()))

	var ran int32
	p.Submit(func(context.Context) { atomic.StoreInt32(&ran, 1) })
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestRecoversPanicInTask(t *testing.T) {
	t.Parallel()

	p := New(2, 4)
	var after int32
	p.Submit(func(context.Context) { panic("boom") })
	p.Submit(func(context.Context) { atomic.StoreInt32(&after, 1) })

	require.NoError(t, p.DrainOnShutdown(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&after))
}
