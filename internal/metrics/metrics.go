package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// DeliveryTransitionCounter counts delivery status transitions
	DeliveryTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_delivery_transitions_total",
			Help: "Total number of delivery status transitions",
		},
		[]string{"to"},
	)

	// PriceAlertCounter counts price alerts raised
	PriceAlertCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_price_alerts_total",
			Help: "Total number of price alerts raised",
		},
	)

	// CompletionStepErrorCounter counts failed delivery completion steps
	CompletionStepErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_completion_step_errors_total",
			Help: "Total number of failed delivery completion steps",
		},
		[]string{"step"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDurationHistogram,
		DeliveryTransitionCounter,
		PriceAlertCounter,
		CompletionStepErrorCounter,
	)
}

// Middleware records request counts and latencies per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDurationHistogram.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
