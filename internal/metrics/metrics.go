package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signaledge"

// Registry owns the process metrics. It satisfies the recorder interfaces of
// the backtester, the price cache and the job handlers.
type Registry struct {
	*prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	backtests     *prometheus.CounterVec
	backtestTime  prometheus.Histogram
	signals       *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	jobsActive    *prometheus.GaugeVec
}

// NewRegistry creates a registry with the runtime collectors and every
// signaledge metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		Registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status class",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests being served",
		}),
		backtests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "backtests_total",
			Help: "Backtest runs by outcome",
		}, []string{"status"}),
		backtestTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "backtest_duration_seconds",
			Help:    "Backtest duration in seconds, fetch included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_generated_total",
			Help: "Signals surviving the filter pipeline",
		}, []string{"signal"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "price_cache_requests_total",
			Help: "Price cache lookups by result",
		}, []string{"result"}),
		jobsActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "jobs_active",
			Help: "Queued or running API jobs",
		}, []string{"type"}),
	}
}

// RecordRequest counts one served request. path should be a route pattern,
// not the raw URL, to keep label cardinality bounded.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	r.httpDuration.WithLabelValues(method, path).Observe(duration)
}

func (r *Registry) InFlightInc() { r.httpInFlight.Inc() }
func (r *Registry) InFlightDec() { r.httpInFlight.Dec() }

// RecordBacktest records a finished run; status is "complete" or "failed".
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtests.WithLabelValues(status).Inc()
	r.backtestTime.Observe(duration)
}

// RecordSignals adds count signals of one direction.
func (r *Registry) RecordSignals(signal string, count int) {
	if count <= 0 {
		return
	}
	r.signals.WithLabelValues(signal).Add(float64(count))
}

// RecordCacheRequest records a price cache lookup (hit, miss or error).
func (r *Registry) RecordCacheRequest(result string) {
	r.cacheRequests.WithLabelValues(result).Inc()
}

func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
