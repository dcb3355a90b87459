package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded at the method channel boundary.
// A nil *Metrics records nothing.
type Metrics struct {
	saves        *prometheus.CounterVec
	savedBytes   *prometheus.CounterVec
	channelCalls *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "download_sink_saves_total",
			Help: "Save attempts by storage strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		savedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "download_sink_saved_bytes_total",
			Help: "Bytes successfully persisted by storage strategy.",
		}, []string{"strategy"}),
		channelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "download_sink_channel_calls_total",
			Help: "Method channel invocations by method and result.",
		}, []string{"method", "result"}),
	}
	reg.MustRegister(m.saves, m.savedBytes, m.channelCalls)
	return m
}

// ObserveSave records one save outcome; size is counted only for "ok"
func (m *Metrics) ObserveSave(strategy, outcome string, size int) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(strategy, outcome).Inc()
	if outcome == "ok" {
		m.savedBytes.WithLabelValues(strategy).Add(float64(size))
	}
}

// ObserveCall records one channel invocation
func (m *Metrics) ObserveCall(method, result string) {
	if m == nil {
		return
	}
	m.channelCalls.WithLabelValues(method, result).Inc()
}
