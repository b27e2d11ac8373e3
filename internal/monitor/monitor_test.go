package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmit_ReturnsValueAndError(t *testing.T) {
	m := New()
	ctx := context.Background()

	okFut := m.Submit(ctx, Requirements{Domain: DomainCPU}, "ok", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	v, err := okFut.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	boom := errors.New("boom")
	errFut := m.Submit(ctx, Requirements{Domain: DomainCPU}, "err", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	_, err = errFut.Get()
	require.ErrorIs(t, err, boom)
}

func TestSubmit_PanicIsRecoveredAsError(t *testing.T) {
	m := New()
	fut := m.Submit(context.Background(), Requirements{Domain: DomainCPU}, "panics", func(ctx context.Context) (interface{}, error) {
		panic("kaboom")
	})
	_, err := fut.Get()
	require.Error(t, err)
}

func TestSubmit_ExclusiveTasksSerialize(t *testing.T) {
	m := New()
	var active int32
	var maxActive int32

	run := func() *Future {
		return m.Submit(context.Background(), Requirements{Domain: DomainCPU, Access: AccessExclusive}, "excl", func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, nil
		})
	}

	futs := []*Future{run(), run(), run()}
	for _, f := range futs {
		_, _ = f.Get()
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestSubmit_SharedTasksRunConcurrently(t *testing.T) {
	m := New()
	start := make(chan struct{})
	var active int32
	var maxActive int32

	run := func() *Future {
		return m.Submit(context.Background(), Requirements{Domain: DomainCPU, StartingThreads: 4}, "shared", func(ctx context.Context) (interface{}, error) {
			<-start
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, nil
		})
	}

	futs := []*Future{run(), run(), run()}
	close(start)
	for _, f := range futs {
		_, _ = f.Get()
	}
	require.Greater(t, atomic.LoadInt32(&maxActive), int32(1))
}
