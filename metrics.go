package sessionauth

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginLocked
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricRegisterRateLimited
	MetricSessionCreated
	MetricSessionEvicted
	MetricSessionRevoked
	MetricLogout
	MetricLogoutAll
	MetricSessionsSwept
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricPasswordRehashed
	MetricAccountLocked
	MetricAccountUnlocked
	MetricUnauthorizedAccess
	MetricStoreConflict
	MetricLoginLatency
	MetricRefreshLatency
	metricIDCount
)

// latencyMetrics are the ids that carry a histogram instead of a counter.
var latencyMetrics = [...]MetricID{MetricLoginLatency, MetricRefreshLatency}

const histBucketCount = 8

// HistogramBounds are the upper bounds of the latency buckets; the last
// bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// counterCell sits alone on a cache line so hot counters do not contend.
type counterCell struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram [histBucketCount]atomic.Uint64

// Metrics holds lock-free counters. A nil or disabled Metrics ignores writes.
type Metrics struct {
	enabled  bool
	latency  bool
	counters [metricIDCount]counterCell
	hist     [len(latencyMetrics)]latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// LatencyEnabled lets callers skip time.Now when nothing will be recorded.
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

// Add increments a counter by n. Latency ids are ignored.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || n == 0 || id >= metricIDCount {
		return
	}
	if _, ok := latencySlot(id); ok {
		return
	}
	m.counters[id].n.Add(n)
}

// Observe records d into id's histogram. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	slot, ok := latencySlot(id)
	if !ok {
		return
	}
	m.hist[slot][bucketIndex(d)].Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter and, when enabled, both histograms. A
// disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if _, ok := latencySlot(id); !ok {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if !m.latency {
		return s
	}
	for slot, id := range latencyMetrics {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.hist[slot][i].Load()
		}
		s.Histograms[id] = buckets
	}
	return s
}

func latencySlot(id MetricID) (int, bool) {
	for slot, l := range latencyMetrics {
		if l == id {
			return slot, true
		}
	}
	return 0, false
}

// bucketIndex returns the first bucket whose bound is at least d.
func bucketIndex(d time.Duration) int {
	return sort.Search(len(HistogramBounds), func(i int) bool {
		return d <= HistogramBounds[i]
	})
}
