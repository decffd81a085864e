package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter or histogram.
type ID uint16

const (
	SignInSuccess ID = iota
	SignInFailure
	SignUpSuccess
	SignUpOTPRequired
	SignUpFailure
	OTPVerifySuccess
	OTPVerifyFailure
	OTPResent
	OTPResendFailure
	OTPResendThrottled
	SessionRestored
	Logout
	WishlistAdded
	WishlistRemoved
	WishlistFailure
	WishlistInFlightRejected
	CatalogFetchSuccess
	CatalogFetchFailure
	TransportError
	BackendRejected
	RequestLatency
	idCount
)

const (
	HistBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [HistBucketCount]uint64
	sumNS   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config enables counting and the latency histogram.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is the in-process counter set. A nil *Metrics is valid and counts nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of all counters. Histograms hold
// non-cumulative bucket counts; Sums hold the total observed duration.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
	Sums       map[ID]time.Duration
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only RequestLatency is a histogram.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != RequestLatency {
		return
	}
	if d < 0 {
		d = 0
	}

	b := BucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
	atomic.AddUint64(&m.histograms[id].sumNS, uint64(d))
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
			Sums:       map[ID]time.Duration{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(idCount)),
		Histograms: make(map[ID][]uint64, 1),
		Sums:       make(map[ID]time.Duration, 1),
	}

	for id := ID(0); id < idCount; id++ {
		if id == RequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, HistBucketCount)
		for i := 0; i < HistBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[RequestLatency].buckets[i])
		}
		s.Histograms[RequestLatency] = buckets
		s.Sums[RequestLatency] = time.Duration(atomic.LoadUint64(&m.histograms[RequestLatency].sumNS))
	}

	return s
}

// BucketIndex maps a latency to its histogram bucket.
func BucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
