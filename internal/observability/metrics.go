package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_stress"

// Metrics holds the Prometheus counters, histograms, and gauges for the stress service.
type Metrics struct {
	// Stress engine metrics.
	StressRuns          *prometheus.CounterVec // labels: scenario
	StressErrors        prometheus.Counter
	StressDuration      prometheus.Histogram
	CriticalLoans       *prometheus.GaugeVec // labels: scenario
	CapitalAtRiskCrores *prometheus.GaugeVec // labels: scenario

	// Portfolio metrics.
	PortfolioLoans prometheus.Gauge
	PortfolioLoads *prometheus.CounterVec // labels: source={cache,generated}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Report publishing metrics.
	ReportsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StressRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stress_runs_total",
			Help:      "Stress test runs by scenario.",
		}, []string{"scenario"}),
		StressErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stress_errors_total",
			Help:      "Stress test runs that failed.",
		}),
		StressDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stress_duration_seconds",
			Help:      "Time to stress the full portfolio and build a report.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		CriticalLoans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critical_loans",
			Help:      "Loans classified CRITICAL in the latest run of each scenario.",
		}, []string{"scenario"}),
		CapitalAtRiskCrores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capital_at_risk_crores",
			Help:      "Capital at risk in crores from the latest run of each scenario.",
		}, []string{"scenario"}),
		PortfolioLoans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_loans",
			Help:      "Number of loans in the loaded portfolio.",
		}),
		PortfolioLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portfolio_loads_total",
			Help:      "Portfolio loads by source.",
		}, []string{"source"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when district geocoding is enabled, 0 otherwise.",
		}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Stress reports written to the report topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_publish_errors_total",
			Help:      "Stress reports that failed to publish.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StressRuns,
		m.StressErrors,
		m.StressDuration,
		m.CriticalLoans,
		m.CapitalAtRiskCrores,
		m.PortfolioLoans,
		m.PortfolioLoads,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.ReportsPublished,
		m.PublishErrors,
	}
}
