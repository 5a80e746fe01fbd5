package downloader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"videoripper/internal"
)

// ErrPoolClosed is returned by Submit after Close
var ErrPoolClosed = errors.New("worker pool is closed")

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Workers int
	// QueueSize bounds the pending items; zero picks twice the worker count
	QueueSize int
	// OnComplete runs on the worker goroutine after every item, whatever its outcome
	OnComplete func(item internal.WorkItem, outcome internal.DownloadOutcome)
}

// PoolStats is a snapshot of the cumulative outcome counters
type PoolStats struct {
	Succeeded int64
	Skipped   int64
	Failed    int64
}

// Total returns the number of finished items
func (s PoolStats) Total() int64 {
	return s.Succeeded + s.Skipped + s.Failed
}

// Sub returns the counts accumulated since an earlier snapshot
func (s PoolStats) Sub(earlier PoolStats) PoolStats {
	return PoolStats{
		Succeeded: s.Succeeded - earlier.Succeeded,
		Skipped:   s.Skipped - earlier.Skipped,
		Failed:    s.Failed - earlier.Failed,
	}
}

// WorkerPool runs a fixed number of download workers over one FIFO queue.
// Drain blocks until every item submitted before it has finished.
type WorkerPool struct {
	workers    int
	jobs       chan job
	fetcher    internal.Fetcher
	onComplete func(internal.WorkItem, internal.DownloadOutcome)

	pending sync.WaitGroup
	running sync.WaitGroup

	mutex  sync.RWMutex
	closed bool

	succeeded atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

type job struct {
	ctx  context.Context
	item internal.WorkItem
}

// NewWorkerPool starts config.Workers workers that fetch with fetcher
func NewWorkerPool(config PoolConfig, fetcher internal.Fetcher) *WorkerPool {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	wp := &WorkerPool{
		workers:    workers,
		jobs:       make(chan job, queueSize),
		fetcher:    fetcher,
		onComplete: config.OnComplete,
	}

	for i := 0; i < workers; i++ {
		wp.running.Add(1)
		go wp.worker(i)
	}

	return wp
}

// Submit enqueues item, blocking while the queue is full. The item's fetch
// runs under ctx.
func (wp *WorkerPool) Submit(ctx context.Context, item internal.WorkItem) error {
	wp.mutex.RLock()
	defer wp.mutex.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	wp.pending.Add(1)
	select {
	case wp.jobs <- job{ctx: ctx, item: item}:
		return nil
	case <-ctx.Done():
		wp.pending.Done()
		return ctx.Err()
	}
}

// Drain blocks until all submitted items have reached an outcome
func (wp *WorkerPool) Drain() {
	wp.pending.Wait()
}

// Stats returns the cumulative outcome counts
func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Succeeded: wp.succeeded.Load(),
		Skipped:   wp.skipped.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Close stops accepting work, lets the workers finish the queue and waits
// for them to exit
func (wp *WorkerPool) Close() {
	wp.mutex.Lock()
	if wp.closed {
		wp.mutex.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobs)
	wp.mutex.Unlock()

	wp.running.Wait()
}

// worker processes jobs until the queue is closed
func (wp *WorkerPool) worker(id int) {
	defer wp.running.Done()

	for j := range wp.jobs {
		wp.process(id, j)
	}
}

func (wp *WorkerPool) process(id int, j job) {
	defer wp.pending.Done()

	outcome, err := wp.fetcher.Fetch(j.ctx, j.item.Reference, j.item.Dir)
	if err != nil {
		outcome = internal.OutcomeFailed
		internal.LogDebug("worker %d: %s failed: %v", id, j.item.Reference, err)
	}

	switch outcome {
	case internal.OutcomeSuccess:
		wp.succeeded.Add(1)
	case internal.OutcomeSkipped:
		wp.skipped.Add(1)
	default:
		wp.failed.Add(1)
	}

	if wp.onComplete != nil {
		wp.onComplete(j.item, outcome)
	}
}
