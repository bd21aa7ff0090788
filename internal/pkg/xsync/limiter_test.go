package xsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)
	var current, max atomic.Int32
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			limiter.Acquire()
			defer limiter.Release()

			n := current.Add(1)
			for {
				old := max.Load()
				if n <= old || max.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			done <- struct{}{}
		}()
	}

	for i := 0; i < 8; i++ {
		<-done
	}

	require.LessOrEqual(t, max.Load(), int32(2))
}

func TestWithRecoverReportsPanic(t *testing.T) {
	var captured error
	fn := WithRecover(func() {
		panic("boom")
	}, func(err error) {
		captured = err
	})

	fn()

	require.Error(t, captured)
	require.Contains(t, captured.Error(), "boom")
}
