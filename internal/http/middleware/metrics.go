// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation: HTTP traffic metrics
// (request counts, latencies, in-flight concurrency, response sizes) and a
// collector for the database connection pool. Labels are limited to method,
// registered route path, and status code to keep cardinality bounded.
package middleware

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of in-flight requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// The "path" label uses the registered route (c.FullPath()) to avoid
// unbounded cardinality from raw URLs; it falls back to the raw path when no
// route matched (e.g. 404).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(dur)
	}
}

// PoolStatsSource is the slice of the connection pool the collector reads.
type PoolStatsSource interface {
	Stats() sql.DBStats
	Healthy() bool
}

// poolCollector exports connection-pool gauges from sql.DBStats.
type poolCollector struct {
	src PoolStatsSource

	open    *prometheus.Desc
	inUse   *prometheus.Desc
	idle    *prometheus.Desc
	waits   *prometheus.Desc
	healthy *prometheus.Desc
}

// NewPoolCollector builds a Prometheus collector over the given pool.
func NewPoolCollector(src PoolStatsSource) prometheus.Collector {
	return &poolCollector{
		src:     src,
		open:    prometheus.NewDesc("db_pool_open_connections", "Open database connections.", nil, nil),
		inUse:   prometheus.NewDesc("db_pool_in_use_connections", "Database connections currently checked out.", nil, nil),
		idle:    prometheus.NewDesc("db_pool_idle_connections", "Idle database connections.", nil, nil),
		waits:   prometheus.NewDesc("db_pool_wait_count_total", "Total number of connection waits.", nil, nil),
		healthy: prometheus.NewDesc("db_pool_healthy", "Whether the last database ping succeeded (1) or not (0).", nil, nil),
	}
}

func (pc *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.open
	ch <- pc.inUse
	ch <- pc.idle
	ch <- pc.waits
	ch <- pc.healthy
}

func (pc *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := pc.src.Stats()
	ch <- prometheus.MustNewConstMetric(pc.open, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(pc.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(pc.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(pc.waits, prometheus.CounterValue, float64(s.WaitCount))
	h := 0.0
	if pc.src.Healthy() {
		h = 1.0
	}
	ch <- prometheus.MustNewConstMetric(pc.healthy, prometheus.GaugeValue, h)
}
