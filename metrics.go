package goAccount

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in a MetricsSnapshot.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that bound a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins other than inactive accounts.
	MetricLoginFailure
	// MetricLoginInactive counts correct credentials on pending accounts.
	MetricLoginInactive
	// MetricLoginRateLimited counts logins refused by the throttle.
	MetricLoginRateLimited
	// MetricSignupSuccess counts created accounts.
	MetricSignupSuccess
	// MetricSignupDuplicate counts signups rejected for a taken username or email.
	MetricSignupDuplicate
	// MetricSignupRateLimited counts signups refused by the throttle.
	MetricSignupRateLimited
	// MetricActivationRequest counts issued activation tokens.
	MetricActivationRequest
	// MetricActivationSuccess counts activated accounts.
	MetricActivationSuccess
	// MetricActivationFailure counts rejected activation tokens.
	MetricActivationFailure
	// MetricPasswordResetRequest counts reset requests, including unknown addresses.
	MetricPasswordResetRequest
	// MetricPasswordResetConfirmSuccess counts passwords changed with a reset token.
	MetricPasswordResetConfirmSuccess
	// MetricPasswordResetConfirmFailure counts rejected password changes.
	MetricPasswordResetConfirmFailure
	// MetricSessionCreated counts sessions created at login.
	MetricSessionCreated
	// MetricSessionRenewed counts sessions rotated at login.
	MetricSessionRenewed
	// MetricLogout counts logouts.
	MetricLogout
	// MetricNotificationFailure counts activation and reset mails that failed to send.
	MetricNotificationFailure
	// MetricRateLimitHit counts every throttle refusal.
	MetricRateLimitHit
	// MetricLoginLatency is the login latency histogram.
	MetricLoginLatency
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

// Metrics holds lock-free counters, one cache line each, and the login
// latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics that records only when cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
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

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricLoginLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricLoginLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the login latency buckets. Argon2 dominates login
// time, so the buckets start at 10ms.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}
