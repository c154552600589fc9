package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the alert pipeline.
type Metrics struct {
	// Ward scan metrics.
	ScansStarted    prometheus.Counter
	ScansSuperseded prometheus.Counter   // scans whose pending callbacks were cancelled
	ScanFailures    prometheus.Counter
	WardsScanned    *prometheus.CounterVec // labels: level
	ScanInFlight    prometheus.Gauge

	// Notification feed metrics.
	NotificationsAdded   *prometheus.CounterVec // labels: level
	NotificationsEvicted prometheus.Counter
	NotificationsUnread  prometheus.Gauge
	NotificationsMirror  *prometheus.CounterVec // labels: outcome={success,error}

	// Toast metrics.
	ToastsPublished *prometheus.CounterVec // labels: level
	ToastsDropped   prometheus.Counter     // published with no listener attached
	ToastsVisible   prometheus.Gauge

	// Forecasting API metrics.
	ForecastRequests    *prometheus.CounterVec   // labels: endpoint={city,ward,scan,summary}, outcome={success,error}
	ForecastCache       *prometheus.CounterVec   // labels: endpoint, result={hit,miss}
	ForecastAPIDuration *prometheus.HistogramVec // labels: endpoint
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ScansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "scans_started_total",
			Help:      "Total ward scans started.",
		}),
		ScansSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "scans_superseded_total",
			Help:      "Scans replaced by a newer scan for the same horizon before finishing.",
		}),
		ScanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "scan_failures_total",
			Help:      "Ward scans that failed to reach the scan endpoint.",
		}),
		WardsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "wards_scanned_total",
			Help:      "Ward scan results by level.",
		}, []string{"level"}),
		ScanInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leakwatch",
			Name:      "scans_in_flight",
			Help:      "Scans waiting on the scan endpoint.",
		}),
		NotificationsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "notifications_added_total",
			Help:      "Notifications inserted into the feed by level.",
		}, []string{"level"}),
		NotificationsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "notifications_evicted_total",
			Help:      "Notifications dropped because the feed exceeded its capacity.",
		}),
		NotificationsUnread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leakwatch",
			Name:      "notifications_unread",
			Help:      "Current unread notification count.",
		}),
		NotificationsMirror: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "notifications_mirrored_total",
			Help:      "Notifications written to the Kafka mirror by outcome.",
		}, []string{"outcome"}),
		ToastsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "toasts_published_total",
			Help:      "Toasts delivered to at least one listener by level.",
		}, []string{"level"}),
		ToastsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "toasts_dropped_total",
			Help:      "Toasts published while no listener was attached.",
		}),
		ToastsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leakwatch",
			Name:      "toasts_visible",
			Help:      "Toasts currently on the board.",
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "forecast_requests_total",
			Help:      "Forecasting API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakwatch",
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		ForecastAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leakwatch",
			Name:      "forecast_api_duration_seconds",
			Help:      "Forecasting API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ScansStarted,
		m.ScansSuperseded,
		m.ScanFailures,
		m.WardsScanned,
		m.ScanInFlight,
		m.NotificationsAdded,
		m.NotificationsEvicted,
		m.NotificationsUnread,
		m.NotificationsMirror,
		m.ToastsPublished,
		m.ToastsDropped,
		m.ToastsVisible,
		m.ForecastRequests,
		m.ForecastCache,
		m.ForecastAPIDuration,
	}
}
