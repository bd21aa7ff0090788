package xsync

// Limiter is a counting semaphore restricting the number of concurrent
// operations to a configured maximum.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a Limiter allowing at most max concurrent holders.
// Panics if max <= 0.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		panic("xsync: limiter max must be > 0")
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is available.
func (l *Limiter) Acquire() {
	l.slots <- struct{}{}
}

// Release frees a slot, waking any goroutine blocked in Acquire.
func (l *Limiter) Release() {
	<-l.slots
}
