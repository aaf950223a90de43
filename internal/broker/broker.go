// Package broker serializes access to the single accelerator device and
// tracks queueing statistics. It is the only synchronization point in the
// service: every device-touching computation runs between Acquire and the
// returned release.
package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"opcalcd/pkg/types"
)

// Broker admits one computation at a time onto the device. Waiters are
// unblocked in best-effort order: whatever the runtime's channel wakeup
// provides, no stricter FIFO guarantee is made.
type Broker struct {
	gate chan struct{} // capacity 1: single in-flight computation

	total        atomic.Uint64
	waiting      atomic.Int64
	maxWaitNanos atomic.Int64
}

// New constructs a Broker with a free gate.
func New() *Broker {
	return &Broker{gate: make(chan struct{}, 1)}
}

// Acquire blocks until the caller is the sole holder of device access.
// Returns a release func to be deferred (extra calls are no-ops) and the
// time spent waiting for admission.
//
// total_requests and currently_waiting are bumped before blocking so that
// status probes observe the queue while the caller waits. If the context
// is canceled before admission, the waiting counter is repaired and no
// release is owed.
func (b *Broker) Acquire(ctx context.Context) (func(), time.Duration, error) {
	b.total.Add(1)
	b.waiting.Add(1)
	waitingGauge.Inc()
	requestsTotal.Inc()

	start := time.Now()
	select {
	case b.gate <- struct{}{}:
		b.waiting.Add(-1)
		waitingGauge.Dec()
		wait := time.Since(start)
		b.observeWait(wait)
		busyGauge.Set(1)
		var once sync.Once
		return func() {
			once.Do(func() {
				busyGauge.Set(0)
				<-b.gate
			})
		}, wait, nil
	case <-ctx.Done():
		b.waiting.Add(-1)
		waitingGauge.Dec()
		abandonedTotal.Inc()
		return func() {}, time.Since(start), ctx.Err()
	}
}

// TryAcquire attempts immediate admission without queuing. On success the
// caller owns the gate and must invoke the returned release promptly; it
// is meant for availability probes, never for real work. Counters are not
// touched: probes are not queue traffic.
func (b *Broker) TryAcquire() (func(), bool) {
	select {
	case b.gate <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-b.gate }) }, true
	default:
		return nil, false
	}
}

// InUse reports whether a request currently holds the device. Lock-free
// snapshot; may be stale by the time the caller acts on it.
func (b *Broker) InUse() bool { return len(b.gate) == 1 }

// Stats returns a snapshot of the queue counters.
func (b *Broker) Stats() types.QueueStats {
	return types.QueueStats{
		TotalRequests:    b.total.Load(),
		CurrentlyWaiting: b.waiting.Load(),
		MaxWaitSeconds:   time.Duration(b.maxWaitNanos.Load()).Seconds(),
	}
}

// observeWait raises the max-wait watermark; monotonically non-decreasing.
func (b *Broker) observeWait(d time.Duration) {
	waitSeconds.Observe(d.Seconds())
	for {
		cur := b.maxWaitNanos.Load()
		if int64(d) <= cur {
			return
		}
		if b.maxWaitNanos.CompareAndSwap(cur, int64(d)) {
			maxWaitGauge.Set(d.Seconds())
			return
		}
	}
}
