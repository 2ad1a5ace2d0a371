package otpauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricOTPLoginSuccess
	MetricOTPLoginFailure
	MetricSignupSuccess
	MetricSignupConflict
	MetricOTPDelivered
	MetricOTPRateLimited
	MetricOTPDeliveryFailure
	MetricOTPVerifyThrottled
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRevoked
	MetricSessionCreated
	MetricLogout
	MetricLogoutCleanupFailure
	MetricAccessTokenRejected
	// Latency histograms.
	MetricOTPDeliveryLatency
	MetricSessionSaveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and latency histograms. A nil
// or disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics allocates metrics according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// IsHistogram reports whether id is recorded by Observe rather than Inc.
func IsHistogram(id MetricID) bool {
	return id == MetricOTPDeliveryLatency || id == MetricSessionSaveLatency
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
//
// Performance: a single atomic add, no allocation.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount || IsHistogram(id) {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into a latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, all histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if IsHistogram(id) {
			if m.enableLatency {
				buckets := make([]uint64, histBucketCount)
				for i := range buckets {
					buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
				}
				s.Histograms[id] = buckets
			}
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
