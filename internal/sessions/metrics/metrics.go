// Package metrics provides Prometheus metrics for the partner session flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the session gateway, reconciliation and overlay store metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PartnerPagesFetchedTotal *prometheus.CounterVec   // Listing pages fetched, by mode (window, needing_closure)
	PartnerFailuresTotal     *prometheus.CounterVec   // Partner failures by endpoint and category
	PartnerMutationsTotal    *prometheus.CounterVec   // Enrollment writes sent, by kind (register, modify, remove)
	ReconcileOutcomesTotal   *prometheus.CounterVec   // Reconciliation outcomes (applied, noop, incomplete, failed)
	OverlayLookupSeconds     *prometheus.HistogramVec // Overlay store lookup latency by backend
	ClosuresScheduledTotal   prometheus.Counter       // Deferred closure jobs handed to the scheduler
	ClosuresAppliedTotal     prometheus.Counter       // Overlays closed by the closure worker
	PartnerCircuitOpen       prometheus.Gauge         // 1 while the partner outage breaker is open
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		PartnerPagesFetchedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_partner_pages_fetched_total",
			Help: "Total number of session listing pages fetched from the partner",
		}, []string{"mode"}),

		PartnerFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_partner_failures_total",
			Help: "Total number of partner call failures by endpoint and category",
		}, []string{"endpoint", "category"}),

		PartnerMutationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_partner_mutations_total",
			Help: "Total number of enrollment writes sent to the partner",
		}, []string{"kind"}),

		ReconcileOutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_reconcile_outcomes_total",
			Help: "Total number of attendance reconciliations by outcome",
		}, []string{"outcome"}),

		OverlayLookupSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "youthsessions_overlay_lookup_duration_seconds",
			Help:    "Duration of overlay store lookups by backend",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"backend"}),

		ClosuresScheduledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "youthsessions_closures_scheduled_total",
			Help: "Total number of deferred session closures scheduled",
		}),

		ClosuresAppliedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "youthsessions_closures_applied_total",
			Help: "Total number of overlays closed by the closure worker",
		}),

		PartnerCircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "youthsessions_partner_circuit_open",
			Help: "Whether the partner outage breaker is open",
		}),
	}
}

func (m *Metrics) IncrementPagesFetched(mode string) {
	if m == nil {
		return
	}
	m.PartnerPagesFetchedTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementPartnerFailure(endpoint, category string) {
	if m == nil {
		return
	}
	m.PartnerFailuresTotal.WithLabelValues(endpoint, category).Inc()
}

func (m *Metrics) AddMutations(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PartnerMutationsTotal.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncrementReconcileOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOverlayLookup(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.OverlayLookupSeconds.WithLabelValues(backend).Observe(seconds)
}

func (m *Metrics) IncrementClosuresScheduled() {
	if m == nil {
		return
	}
	m.ClosuresScheduledTotal.Inc()
}

func (m *Metrics) AddClosuresApplied(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ClosuresAppliedTotal.Add(float64(n))
}

func (m *Metrics) SetPartnerCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.PartnerCircuitOpen.Set(1)
		return
	}
	m.PartnerCircuitOpen.Set(0)
}
