package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics carries the engine's counters. A nil *Metrics is valid and records
// nothing, so tests and tooling can run without a registry.
type Metrics struct {
	logins       *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	revocations  *prometheus.CounterVec
	reuseAlerts  prometheus.Counter
	sweepRemoved prometheus.Counter
}

// NewMetrics builds and registers the engine counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Refresh rotations by result.",
		}, []string{"result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "session",
			Name:      "revocations_total",
			Help:      "Record revocations by reason.",
		}, []string{"reason"}),
		reuseAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "session",
			Name:      "reuse_detected_total",
			Help:      "Refresh replay detections. Each one burned a family.",
		}),
		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "session",
			Name:      "swept_records_total",
			Help:      "Expired records removed by the sweeper.",
		}),
	}
	reg.MustRegister(m.logins, m.refreshes, m.revocations, m.reuseAlerts, m.sweepRemoved)
	return m
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) revoked(reason string) {
	if m != nil {
		m.revocations.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) reuseDetected() {
	if m != nil {
		m.reuseAlerts.Inc()
	}
}

func (m *Metrics) swept(n int64) {
	if m != nil {
		m.sweepRemoved.Add(float64(n))
	}
}
