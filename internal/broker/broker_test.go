package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	b := New()
	release, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !b.InUse() {
		t.Fatalf("expected gate in use")
	}
	release()
	if b.InUse() {
		t.Fatalf("expected gate free after release")
	}
	st := b.Stats()
	if st.TotalRequests != 1 {
		t.Fatalf("total=%d", st.TotalRequests)
	}
	if st.CurrentlyWaiting != 0 {
		t.Fatalf("waiting=%d", st.CurrentlyWaiting)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	b := New()
	release, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release() // must not panic or double-drain the gate
	release2, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	release2()
}

func TestMutualExclusion(t *testing.T) {
	const n = 32
	b := New()
	var inFlight, maxSeen atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, _, err := b.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			cur := inFlight.Add(1)
			for {
				m := maxSeen.Load()
				if cur <= m || maxSeen.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			release()
		}()
	}
	wg.Wait()
	if maxSeen.Load() != 1 {
		t.Fatalf("max concurrent holders=%d, want 1", maxSeen.Load())
	}
	st := b.Stats()
	if st.TotalRequests != n {
		t.Fatalf("total=%d, want %d", st.TotalRequests, n)
	}
	if st.CurrentlyWaiting != 0 {
		t.Fatalf("waiting=%d, want 0", st.CurrentlyWaiting)
	}
	if b.InUse() {
		t.Fatalf("gate still held after all releases")
	}
}

func TestMaxWaitMonotonic(t *testing.T) {
	b := New()
	hold, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	done := make(chan struct{})
	go func() {
		release, _, err := b.Acquire(context.Background())
		if err == nil {
			release()
		}
		close(done)
	}()
	// Let the waiter block long enough to register a measurable wait.
	time.Sleep(20 * time.Millisecond)
	if st := b.Stats(); st.CurrentlyWaiting != 1 {
		t.Fatalf("waiting=%d, want 1", st.CurrentlyWaiting)
	}
	hold()
	<-done
	first := b.Stats().MaxWaitSeconds
	if first <= 0 {
		t.Fatalf("max wait not recorded: %v", first)
	}
	// An instant acquire must not lower the watermark.
	release, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	if got := b.Stats().MaxWaitSeconds; got < first {
		t.Fatalf("max wait decreased: %v -> %v", first, got)
	}
}

func TestAcquireCanceled(t *testing.T) {
	b := New()
	hold, _, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	release, _, err := b.Acquire(ctx)
	if err == nil {
		t.Fatalf("expected context error")
	}
	release() // no-op release must be safe
	if st := b.Stats(); st.CurrentlyWaiting != 0 {
		t.Fatalf("waiting=%d after abandoned acquire, want 0", st.CurrentlyWaiting)
	}
	// Abandoned attempts still count as traffic.
	if st := b.Stats(); st.TotalRequests != 2 {
		t.Fatalf("total=%d, want 2", st.TotalRequests)
	}
	hold()
}

func TestTryAcquire(t *testing.T) {
	b := New()
	release, ok := b.TryAcquire()
	if !ok {
		t.Fatalf("expected free gate")
	}
	if _, ok := b.TryAcquire(); ok {
		t.Fatalf("expected busy gate")
	}
	release()
	release2, ok := b.TryAcquire()
	if !ok {
		t.Fatalf("expected gate free again")
	}
	release2()
	// Probes are not queue traffic.
	if st := b.Stats(); st.TotalRequests != 0 {
		t.Fatalf("total=%d after probes, want 0", st.TotalRequests)
	}
}
