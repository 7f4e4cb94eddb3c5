package snapzy

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricOTPRequested counts successful OTP issuance transitions.
	MetricOTPRequested MetricID = iota
	// MetricOTPResent counts successful resend transitions.
	MetricOTPResent
	// MetricOTPVerified counts successful verification transitions.
	MetricOTPVerified
	// MetricOTPRejected counts failed verification attempts.
	MetricOTPRejected
	// MetricOTPMailFailed counts OTP deliveries the notifier rejected.
	MetricOTPMailFailed
	// MetricIssuanceContended counts OTP requests refused by the issuance guard.
	MetricIssuanceContended
	// MetricRegistrationSuccess counts completed registrations.
	MetricRegistrationSuccess
	// MetricRegistrationRejected counts refused registration attempts.
	MetricRegistrationRejected
	// MetricWelcomeMailFailed counts welcome deliveries the notifier rejected.
	MetricWelcomeMailFailed
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts refused logins.
	MetricLoginFailure

	metricIDCount
)

type paddedCounter struct {
	value atomic.Uint64
	_     [56]byte
}

// Metrics holds lock-free counters. When disabled, all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recording.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Value returns the current value of the counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].value.Load()
	}
	return snap
}
