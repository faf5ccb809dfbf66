package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "concession"

var (
	ApplicationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_created_total",
		Help:      "Concession applications accepted.",
	})

	ApplicationsRejectedInput = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "application_validation_failures_total",
		Help:      "Application submissions refused by validation, by reason.",
	}, []string{"reason"})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "application_status_changes_total",
		Help:      "Status updates applied by staff, by new status.",
	}, []string{"status"})

	CertificatesAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "certificates_assigned_total",
		Help:      "Certificate numbers assigned to applications.",
	})

	DocumentsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_stored_total",
		Help:      "Uploaded documents written to storage, by document type.",
	}, []string{"doc_type"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency keyed by the matched route
// template, so path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
