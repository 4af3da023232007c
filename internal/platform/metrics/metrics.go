// Package metrics holds process-wide Prometheus metrics that do not belong to a
// single bounded context, and the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	TokenExchangesTotal *prometheus.CounterVec // Token exchanges by outcome (cache_hit, exchanged, refused, unavailable)
	BuildInfo           *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		TokenExchangesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "youthsessions_token_exchanges_total",
			Help: "Total number of counsellor token exchanges by outcome",
		}, []string{"outcome"}),
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "youthsessions_build_info",
			Help: "Always 1; labels carry the running binary and version",
		}, []string{"binary", "version"}),
	}
}

func (m *Metrics) IncrementTokenExchange(outcome string) {
	if m == nil {
		return
	}
	m.TokenExchangesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetBuildInfo(binary, version string) {
	if m == nil {
		return
	}
	m.BuildInfo.WithLabelValues(binary, version).Set(1)
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
