package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks ingestion and deletion jobs on their own
// registry so the metrics endpoint only exposes what the worker owns.
type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobInFlight *prometheus.GaugeVec
}

func NewWorkerMetrics() *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kb",
			Subsystem: "worker",
			Name:      "job_total",
			Help:      "Total worker jobs by kind and status.",
		},
		[]string{"kind", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kb",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Worker job duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)
	jobInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kb",
			Subsystem: "worker",
			Name:      "job_in_flight",
			Help:      "Number of in-flight worker jobs by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobInFlight)

	return &WorkerMetrics{
		registry:    registry,
		jobTotal:    jobTotal,
		jobDuration: jobDuration,
		jobInFlight: jobInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob(kind string) {
	m.jobInFlight.WithLabelValues(kind).Inc()
}

func (m *WorkerMetrics) FinishJob(kind string, duration time.Duration, err error) {
	m.jobInFlight.WithLabelValues(kind).Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobTotal.WithLabelValues(kind, status).Inc()
	m.jobDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}
