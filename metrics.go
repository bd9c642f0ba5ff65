package bodypipe

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records channel activity in Prometheus collectors. A nil *Metrics
// records nothing. One Metrics value may be shared by many channels.
type Metrics struct {
	chunks   *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	suspends *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	open     prometheus.Gauge
}

// NewMetrics creates unregistered collectors in the "bodypipe" namespace.
func NewMetrics(constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bodypipe",
			Subsystem:   "channel",
			Name:        "chunks_total",
			Help:        "number of chunks passed through channels, by direction",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bodypipe",
			Subsystem:   "channel",
			Name:        "bytes_total",
			Help:        "number of bytes passed through channels, by direction",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		suspends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bodypipe",
			Subsystem:   "channel",
			Name:        "suspensions_total",
			Help:        "number of operations that had to wait for the other side",
			ConstLabels: constLabels,
		}, []string{"side"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bodypipe",
			Subsystem:   "channel",
			Name:        "terminations_total",
			Help:        "number of channels that left the open state, by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "bodypipe",
			Subsystem:   "channel",
			Name:        "open",
			Help:        "number of channels whose writer is still open",
			ConstLabels: constLabels,
		}),
	}
}

func (m *Metrics) Register(registerer prometheus.Registerer) {
	registerer.MustRegister(m.chunks)
	registerer.MustRegister(m.bytes)
	registerer.MustRegister(m.suspends)
	registerer.MustRegister(m.outcomes)
	registerer.MustRegister(m.open)
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.open.Inc()
}

func (m *Metrics) transfer(direction string, n int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(direction).Inc()
	m.bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) suspended(side string) {
	if m == nil {
		return
	}
	m.suspends.WithLabelValues(side).Inc()
}

func (m *Metrics) terminated(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	if outcome != outcomeAbandoned {
		m.open.Dec()
	}
}
