package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GateWaitSeconds        *prometheus.HistogramVec
	GateAdmittedTotal      *prometheus.CounterVec
	GateAbandonedTotal     *prometheus.CounterVec
	GateQueuedReservations *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		GateWaitSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "youthsessions_ratelimit_gate_wait_seconds",
			Help:    "Time callers spent waiting for a partner quota slot",
			Buckets: []float64{0, 0.05, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"gate"}),
		GateAdmittedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_ratelimit_gate_admitted_total",
			Help: "Total number of callers released by a rate gate",
		}, []string{"gate"}),
		GateAbandonedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_ratelimit_gate_abandoned_total",
			Help: "Total number of callers that stopped waiting before their slot opened",
		}, []string{"gate"}),
		GateQueuedReservations: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "youthsessions_ratelimit_gate_queued",
			Help: "Callers currently sleeping until their reserved window opens",
		}, []string{"gate"}),
	}
}

func (m *Metrics) ObserveWait(gate string, seconds float64) {
	m.GateWaitSeconds.WithLabelValues(gate).Observe(seconds)
	m.GateAdmittedTotal.WithLabelValues(gate).Inc()
}

func (m *Metrics) IncrementAbandoned(gate string) {
	m.GateAbandonedTotal.WithLabelValues(gate).Inc()
}

func (m *Metrics) IncQueued(gate string) {
	m.GateQueuedReservations.WithLabelValues(gate).Inc()
}

func (m *Metrics) DecQueued(gate string) {
	m.GateQueuedReservations.WithLabelValues(gate).Dec()
}
