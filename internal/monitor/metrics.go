package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the sampling loop.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	passes   prometheus.Counter
	readings prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
	lastPass prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	passes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meteo_passes_total",
		Help: "Total sampling passes completed.",
	})
	readings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meteo_readings_total",
		Help: "Total readings collected across all passes.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meteo_sensor_failures_total",
		Help: "Sensor reads that failed and were skipped.",
	}, []string{"sensor"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meteo_pass_duration_seconds",
		Help:    "Wall time of one sampling pass including sink writes.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	lastPass := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meteo_last_pass_timestamp_seconds",
		Help: "Unix time at which the last pass started.",
	})

	reg.MustRegister(passes, readings, failures, duration, lastPass)

	return &Metrics{
		passes:   passes,
		readings: readings,
		failures: failures,
		duration: duration,
		lastPass: lastPass,
	}
}

func (m *Metrics) pass(r PassResult) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.readings.Add(float64(r.Collected))
	m.duration.Observe(r.Duration.Seconds())
	m.lastPass.Set(float64(r.Started.Unix()))
}

func (m *Metrics) failure(sensor string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(sensor).Inc()
}
