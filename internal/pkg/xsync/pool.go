package xsync

import (
	"sync/atomic"

	"github.com/gammazero/workerpool"
)

// Pool submits work for concurrent execution. It abstracts over the
// specific goroutine-pool implementation backing the async job manager.
type Pool interface {
	Submit(f func())
}

type poolAdapter func(f func())

func (p poolAdapter) Submit(f func()) { p(f) }

// NoPool launches every submission in its own panic-safe goroutine, with
// no concurrency cap. Used for fire-and-forget work that is already
// bounded elsewhere (e.g. one goroutine per point-cloud session monitor).
func NoPool() Pool {
	return poolAdapter(func(f func()) {
		Go(f)
	})
}

// WorkerPool adapts gammazero/workerpool to the Pool interface, giving the
// async job manager a bounded-concurrency executor for deferred indexing
// and point-cloud generation jobs.
type WorkerPool struct {
	inner   *workerpool.WorkerPool
	stopped atomic.Bool
}

// NewWorkerPool creates a WorkerPool with the given maximum concurrency.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{inner: workerpool.New(maxWorkers)}
}

// Submit queues f for execution by one of the pool's workers. Panics
// inside f are recovered so one failing job never takes down the pool.
func (w *WorkerPool) Submit(f func()) {
	if w.stopped.Load() {
		return
	}
	w.inner.Submit(WithRecover(f, func(error) {}))
}

// StopWait stops accepting new submissions, then waits for queued and
// running jobs to finish.
func (w *WorkerPool) StopWait() {
	w.stopped.Store(true)
	w.inner.StopWait()
}
