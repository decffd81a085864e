package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledNoIncrement(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(SignInSuccess)

	if got := m.Value(SignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty")
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(SignInSuccess)
	m.Observe(RequestLatency, time.Second)
	if m.Value(SignInSuccess) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestConcurrentIncrementSafe(t *testing.T) {
	m := New(Config{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(WishlistAdded)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(WishlistAdded); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestHistogramBucketsAndSum(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	observations := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2500 * time.Millisecond,
		5 * time.Second,
		9 * time.Second,
	}
	var total time.Duration
	for _, d := range observations {
		m.Observe(RequestLatency, d)
		total += d
	}
	m.Observe(SignInSuccess, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[RequestLatency]
	if len(buckets) != HistBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d = %d, want 1", i, v)
		}
	}
	if snap.Sums[RequestLatency] != total {
		t.Fatalf("sum = %v, want %v", snap.Sums[RequestLatency], total)
	}
	if _, ok := snap.Counters[RequestLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
}

func TestHistogramDisabledWithoutLatencyFlag(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Observe(RequestLatency, time.Millisecond)
	if _, ok := m.Snapshot().Histograms[RequestLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}
