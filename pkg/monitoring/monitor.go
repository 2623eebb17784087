package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	RefreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_refresh_runs_total",
			Help: "Refresh pipeline runs by trigger",
		},
		[]string{"trigger"},
	)

	RefreshCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_refresh_coalesced_total",
			Help: "Triggers folded into a pending follow-up run",
		},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_refresh_duration_seconds",
			Help:    "Duration of a full refresh pipeline run",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_total",
			Help: "Upstream fetch attempts by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Duration of upstream fetch attempts",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"resource"},
	)

	FallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fallback_total",
			Help: "Views served from the static default collection",
		},
		[]string{"view"},
	)

	StoreModules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_store_modules",
			Help: "Modules in the last adopted snapshot",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			RefreshRuns,
			RefreshCoalesced,
			RefreshDuration,
			FetchCounter,
			FetchDuration,
			FallbackCounter,
			StoreModules,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
