// Package xsync provides small concurrency helpers shared across the
// service: panic-safe goroutine launching, a counting semaphore, and a
// Pool abstraction that can be backed by different goroutine-pool
// implementations.
package xsync

import (
	"fmt"
	"runtime/debug"
	"time"
)

// PanicError wraps a recovered panic with a timestamp and stack trace.
type PanicError struct {
	Time  time.Time
	Info  any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: timestamp=%s info=%+v\n%s", e.Time.Format(time.RFC3339Nano), e.Info, e.Stack)
}

// Go launches fn in a new goroutine, recovering any panic and forwarding
// it to the optional panic handlers instead of crashing the process.
func Go(fn func(), onPanic ...func(error)) {
	wrapped := WithRecover(fn, onPanic...)
	if wrapped == nil {
		return
	}
	go wrapped()
}

// WithRecover wraps fn so that a panic is recovered and reported to
// onPanic instead of propagating.
func WithRecover(fn func(), onPanic ...func(error)) func() {
	if fn == nil {
		return nil
	}
	return func() {
		defer func() {
			if r := recover(); r != nil {
				if len(onPanic) == 0 {
					return
				}
				err := &PanicError{Time: time.Now(), Info: r, Stack: debug.Stack()}
				for _, h := range onPanic {
					h(err)
				}
			}
		}()
		fn()
	}
}
