package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensor_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the snapshot poller.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec // labels: outcome={success,exhausted,canceled}
	RenderAttempts  *prometheus.CounterVec // labels: outcome={success,launch,timeout,empty,error}
	CycleDuration   prometheus.Histogram
	LastSuccess     prometheus.Gauge
	PollerState     prometheus.Gauge
	PipelineRunning prometheus.Gauge

	// Classification results of the last committed snapshot.
	RecordsObserved  prometheus.Gauge
	RecordsDefaulted prometheus.Gauge
	RecordsUnknown   prometheus.Gauge

	MirrorErrors *prometheus.CounterVec // labels: mirror={file,sqlite,kafka}
}

// NewMetrics creates and registers all poller metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		RenderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_attempts_total",
			Help:      "Page render and extraction attempts by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-classify-commit cycle, retries included.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed snapshot.",
		}),
		PollerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poller_state",
			Help:      "Current poller state: 0 idle, 1 fetching, 2 parsing, 3 classifying, 4 committing, 5 retrying.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the poller is active, 0 when shut down.",
		}),
		RecordsObserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_observed",
			Help:      "Records placed from source rows in the last snapshot.",
		}),
		RecordsDefaulted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_defaulted",
			Help:      "Records synthesized for missing sensors in the last snapshot.",
		}),
		RecordsUnknown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_unknown",
			Help:      "Source rows with identifiers outside the taxonomy in the last snapshot.",
		}),
		MirrorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_errors_total",
			Help:      "Failed snapshot mirror writes by mirror.",
		}, []string{"mirror"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CyclesTotal,
		m.RenderAttempts,
		m.CycleDuration,
		m.LastSuccess,
		m.PollerState,
		m.PipelineRunning,
		m.RecordsObserved,
		m.RecordsDefaulted,
		m.RecordsUnknown,
		m.MirrorErrors,
	}
}
