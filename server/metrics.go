package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors exposed on /metrics.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	AnalysesTotal     prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	ReportCacheHits   prometheus.Counter
	ReportCacheMisses prometheus.Counter
	FlaggedOrders     prometheus.Counter
	DatasetRecords    prometheus.Gauge
	DatasetGeneration prometheus.Gauge
	SessionsActive    prometheus.Gauge
	SessionsEvicted   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoplens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shoplens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplens_analyses_total",
			Help: "Total number of reports computed",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shoplens_analysis_duration_seconds",
			Help:    "Time spent computing a report",
			Buckets: prometheus.DefBuckets,
		}),
		ReportCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplens_report_cache_hits_total",
			Help: "Session reports served from cache",
		}),
		ReportCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplens_report_cache_misses_total",
			Help: "Session reports recomputed",
		}),
		FlaggedOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplens_flagged_orders_total",
			Help: "Orders flagged as potentially suspicious across all computed reports",
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shoplens_dataset_records",
			Help: "Records in the current dataset",
		}),
		DatasetGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shoplens_dataset_generation",
			Help: "Number of dataset replacements since start",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shoplens_sessions_active",
			Help: "Open analysis sessions",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplens_sessions_evicted_total",
			Help: "Sessions dropped for idleness or to stay under the session limit",
		}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.ReportCacheHits,
		m.ReportCacheMisses,
		m.FlaggedOrders,
		m.DatasetRecords,
		m.DatasetGeneration,
		m.SessionsActive,
		m.SessionsEvicted,
	)
	return m
}

// instrument records request count and latency per route.
func (m *Metrics) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
