package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestInitMetrics_Idempotent(t *testing.T) {
	require.NotPanics(t, InitMetrics)
	require.NotPanics(t, InitMetrics)
	assert.True(t, isMetricsInit())
}

func TestMetricsMiddleware_CountsByRouteAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/v1/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/bad", func(c *gin.Context) { c.Status(http.StatusConflict) })

	before := testutil.ToFloat64(RESTRequestMetricsTotal.WithLabelValues("GET", "/v1/bad", "4xx"))

	for _, path := range []string{"/v1/ok", "/v1/bad", "/v1/bad"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(RESTRequestMetricsTotal.WithLabelValues("GET", "/v1/bad", "4xx")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(RESTRequestMetricsTotal.WithLabelValues("GET", "/v1/ok", "2xx")), 1.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(activeRESTConnections))
}

func TestUnaryServerInterceptor(t *testing.T) {
	ic := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/aliasvault.v1.Vault/Get"}

	before := testutil.ToFloat64(GRPCRequestsMetricsTotal.WithLabelValues(info.FullMethod, "NotFound"))

	_, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "nope")
	})
	require.Error(t, err)

	_, err = ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, errors.New("plain")
	})
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(GRPCRequestsMetricsTotal.WithLabelValues(info.FullMethod, "NotFound")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(GRPCRequestsMetricsTotal.WithLabelValues(info.FullMethod, "Unknown")), 1.0)
}

func TestObserveRetention(t *testing.T) {
	before := testutil.ToFloat64(VaultRevisionsPrunedTotal)
	ObserveRetention(time.Now(), 3)
	assert.Equal(t, before+3, testutil.ToFloat64(VaultRevisionsPrunedTotal))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(401))
	assert.Equal(t, "5xx", statusClass(503))
}
