// Package metrics holds the Prometheus collectors for HTTP traffic and exam
// domain activity.
package metrics

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
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	OtpSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_otp_sent_total",
			Help: "OTP send requests by outcome",
		},
		[]string{"outcome"},
	)

	OtpVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_otp_verify_total",
			Help: "OTP verification requests by outcome",
		},
		[]string{"outcome"},
	)

	ParticipantsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_participants_registered_total",
			Help: "Participants registered for public exams",
		},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_finalized_total",
			Help: "Attempts finalized by resulting status and submission type",
		},
		[]string{"status", "submission_type"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_sweep_duration_seconds",
			Help:    "Duration of one deadline sweep pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			OtpSent,
			OtpVerified,
			ParticipantsRegistered,
			AttemptsFinalized,
			SweepDuration,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
