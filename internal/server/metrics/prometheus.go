// Package metrics holds the prometheus collectors of the server and the gin
// and gRPC hooks that feed them.
package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500, 1000},
		},
		[]string{"method", "endpoint"},
	)

	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API request size distributions",
			Buckets: []float64{1, 10, 100, 500, 1000, 5000, 10000},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint", "status"})

	// Number of requests processed by gRPC API
	GRPCRequestsMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_processed_total",
		Help: "The total number of processed gRPC requests",
	}, []string{"method", "code"})

	// Authentication attempts by event and outcome
	AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Authentication events by type and result",
	}, []string{"event", "result"})

	// Vault uploads by outcome (stored, conflict, outdated, error)
	VaultUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_uploads_total",
		Help: "Vault revision uploads by result",
	}, []string{"result"})

	// Revisions removed by the retention policy
	VaultRevisionsPrunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vault_revisions_pruned_total",
		Help: "The total number of vault revisions removed by retention",
	})

	// Latency of the synchronous retention pass inside an upload
	RetentionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vault_retention_latency_milliseconds",
		Help:    "Latency of the retention pass of a vault upload",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

// InitMetrics registers every collector with the default registry once.
func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(GRPCRequestsMetricsTotal)
		prometheus.MustRegister(AuthEventsTotal)
		prometheus.MustRegister(VaultUploadsTotal)
		prometheus.MustRegister(VaultRevisionsPrunedTotal)
		prometheus.MustRegister(RetentionLatency)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request

		start := time.Now()

		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RESTRequestMetricsTotal.WithLabelValues(r.Method, endpoint, statusClass(c.Writer.Status())).Inc()

		// observe request size in kilobytes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(r.Method, endpoint).Observe(float64(r.ContentLength) / 1024)
		}

		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(r.Method, endpoint).Observe(float64(latency.Milliseconds()))
	}
}

// UnaryServerInterceptor counts gRPC calls by method and status code.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		GRPCRequestsMetricsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// ObserveRetention records one retention pass.
func ObserveRetention(start time.Time, pruned int) {
	RetentionLatency.Observe(float64(time.Since(start).Microseconds()) / 1000)
	VaultRevisionsPrunedTotal.Add(float64(pruned))
}
