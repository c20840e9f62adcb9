// Package metrics exposes the pipeline and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "enfance"

// Metrics holds the collectors on a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal           *prometheus.CounterVec
	retrievedSegments  prometheus.Histogram
	rankDuration       prometheus.Histogram
	generationDuration *prometheus.HistogramVec
	cacheHits          prometheus.Counter
	followUps          *prometheus.CounterVec
}

// New registers every collector on a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		askTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Answers produced, by status.",
		}, []string{"status"}),
		retrievedSegments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_segments",
			Help:      "Segments handed to generation per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "rank_duration_seconds",
			Help:      "Hybrid ranking duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_duration_seconds",
			Help:      "Generation call duration in seconds, by outcome.",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "cache_hits_total",
			Help:      "Answers served from the response cache.",
		}),
		followUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "follow_ups_total",
			Help:      "Follow-up validation outcomes (kept, replaced, dropped).",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requestTotal, m.requestDuration, m.requestInFlight,
		m.askTotal, m.retrievedSegments, m.rankDuration,
		m.generationDuration, m.cacheHits, m.followUps,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count, duration and in-flight requests.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(rec, r)

		m.requestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordAnswer counts an answer and the number of segments it used.
func (m *Metrics) RecordAnswer(status string, segments int) {
	if m == nil {
		return
	}
	m.askTotal.WithLabelValues(status).Inc()
	m.retrievedSegments.Observe(float64(segments))
}

// RecordRank observes one ranking run.
func (m *Metrics) RecordRank(d time.Duration) {
	if m == nil {
		return
	}
	m.rankDuration.Observe(d.Seconds())
}

// RecordGeneration observes one generation call. outcome is "ok", "timeout" or "error".
func (m *Metrics) RecordGeneration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordCacheHit counts an answer served from cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordFollowUp counts a follow-up validation outcome.
func (m *Metrics) RecordFollowUp(outcome string) {
	if m == nil {
		return
	}
	m.followUps.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
