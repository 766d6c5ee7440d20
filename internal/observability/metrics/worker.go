package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	mergeTotal      *prometheus.CounterVec
	mergeDuration   *prometheus.HistogramVec
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "manual_process_total",
			Help:      "Total processed manuals by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "manual_process_duration_seconds",
			Help:      "Manual processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "manual_process_in_flight",
			Help:      "Number of in-flight manual processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	mergeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "manual_merge_total",
			Help:      "Total async manual merges by status.",
		},
		[]string{"service", "status"},
	)
	mergeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "manual_merge_duration_seconds",
			Help:      "Async manual merge duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between manual upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, mergeTotal, mergeDuration, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		mergeTotal:      mergeTotal,
		mergeDuration:   mergeDuration,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartManual() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishManual(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()
	m.processTotal.WithLabelValues(service, statusLabel(err)).Inc()
	m.processDuration.WithLabelValues(service, statusLabel(err)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) FinishMerge(service string, duration time.Duration, err error) {
	m.mergeTotal.WithLabelValues(service, statusLabel(err)).Inc()
	m.mergeDuration.WithLabelValues(service, statusLabel(err)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
