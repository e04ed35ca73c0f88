package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Export outcomes recorded on exports_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors the server exports on /metrics.
type Metrics struct {
	RequestCount        *prometheus.CounterVec
	Exports             *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_exports_total",
				Help: "PDF exports by theme and outcome.",
			},
			[]string{"theme", "outcome"},
		),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resume_active_subscriptions",
			Help: "Live resume subscriptions currently streamed to clients.",
		}),
	}
	for _, c := range []prometheus.Collector{m.RequestCount, m.Exports, m.ActiveSubscriptions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveExport counts one export attempt.
func (m *Metrics) ObserveExport(theme string, err error) {
	if theme == "" {
		theme = "none"
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.Exports.WithLabelValues(theme, outcome).Inc()
}

// TrackSubscription marks a subscription as open and returns the func that marks it closed.
func (m *Metrics) TrackSubscription() (done func()) {
	m.ActiveSubscriptions.Inc()
	return m.ActiveSubscriptions.Dec
}
