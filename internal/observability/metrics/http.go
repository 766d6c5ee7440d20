package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal           *prometheus.CounterVec
	searchRerankedTotal   *prometheus.CounterVec
	searchCandidates      *prometheus.HistogramVec
	searchResults         *prometheus.HistogramVec
	searchDuration        *prometheus.HistogramVec
	isolationDroppedTotal *prometheus.CounterVec
	mergeTotal            *prometheus.CounterVec
	mergeItemsMergedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mas",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful searches by winning retrieval strategy.",
		},
		[]string{"service", "endpoint", "strategy"},
	)
	searchRerankedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "reranked_total",
			Help:      "Total searches by whether the cross-encoder ran.",
		},
		[]string{"service", "endpoint", "reranked"},
	)
	searchCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Distribution of retrieval candidates per search.",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 75, 100},
		},
		[]string{"service", "endpoint"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of returned results per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15},
		},
		[]string{"service", "endpoint"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	isolationDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "search",
			Name:      "isolation_dropped_total",
			Help:      "Candidates removed by the tenant/manual isolation filter.",
		},
		[]string{"service"},
	)
	mergeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "merge",
			Name:      "requests_total",
			Help:      "Total manual merges by status.",
		},
		[]string{"service", "status"},
	)
	mergeItemsMergedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mas",
			Subsystem: "merge",
			Name:      "items_merged_total",
			Help:      "Total items carried over by successful merges.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchRerankedTotal,
		searchCandidates,
		searchResults,
		searchDuration,
		isolationDroppedTotal,
		mergeTotal,
		mergeItemsMergedTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		searchTotal:           searchTotal,
		searchRerankedTotal:   searchRerankedTotal,
		searchCandidates:      searchCandidates,
		searchResults:         searchResults,
		searchDuration:        searchDuration,
		isolationDroppedTotal: isolationDroppedTotal,
		mergeTotal:            mergeTotal,
		mergeItemsMergedTotal: mergeItemsMergedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/manuals/") {
		return path
	}
	if strings.HasSuffix(path, "/qa/import") {
		return "/v1/manuals/{manual_id}/qa/import"
	}
	return "/v1/manuals/{manual_id}"
}

func (m *HTTPServerMetrics) RecordSearch(
	service, endpoint, strategy string,
	reranked bool,
	candidates, results, isolationDropped int,
	duration time.Duration,
) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.searchTotal.WithLabelValues(service, endpoint, strategy).Inc()
	m.searchRerankedTotal.WithLabelValues(service, endpoint, strconv.FormatBool(reranked)).Inc()
	m.searchCandidates.WithLabelValues(service, endpoint).Observe(float64(candidates))
	m.searchResults.WithLabelValues(service, endpoint).Observe(float64(results))
	m.searchDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if isolationDropped > 0 {
		m.isolationDroppedTotal.WithLabelValues(service).Add(float64(isolationDropped))
	}
}

func (m *HTTPServerMetrics) RecordMerge(service string, err error, itemsMerged int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.mergeTotal.WithLabelValues(service, status).Inc()
	if err == nil && itemsMerged > 0 {
		m.mergeItemsMergedTotal.WithLabelValues(service).Add(float64(itemsMerged))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
