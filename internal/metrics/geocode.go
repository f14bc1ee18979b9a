// Package metrics holds the prometheus instrumentation for geocoding and the
// site inventory exporter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Geocode request outcomes.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// GeocodeMetrics counts reverse-geocoding traffic. A nil *GeocodeMetrics is valid and records nothing.
type GeocodeMetrics struct {
	Requests  *prometheus.CounterVec
	CacheHits prometheus.Counter
}

func NewGeocodeMetrics(reg prometheus.Registerer) *GeocodeMetrics {
	m := &GeocodeMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdwan_geocode_requests_total",
			Help: "Reverse geocoding requests sent to the geocoding service, by result.",
		}, []string{"result"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdwan_geocode_cache_hits_total",
			Help: "Reverse geocoding lookups answered from the in-process cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.CacheHits)
	}
	return m
}

func (m *GeocodeMetrics) ObserveRequest(result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
}

func (m *GeocodeMetrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}
