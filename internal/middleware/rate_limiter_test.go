package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/service"
)

func limitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bookings", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func post(router *gin.Engine, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = remote
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRateLimiterRejectsBurstPerIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	router := limitedRouter(limiter)

	assert.Equal(t, http.StatusCreated, post(router, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusCreated, post(router, "10.0.0.1:1001").Code)

	rejected := post(router, "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "1", rejected.Header().Get("Retry-After"))
	assert.Contains(t, rejected.Body.String(), "TOO_MANY_REQUESTS")

	assert.Equal(t, http.StatusCreated, post(router, "10.0.0.2:1000").Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	router := limitedRouter(NewRateLimiter(0, 1))
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, post(router, "10.0.0.1:1000").Code)
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.allow("10.0.0.1")

	now = now.Add(limiter.idleTTL + time.Second)
	limiter.allow("10.0.0.2")

	assert.Equal(t, 1, limiter.evict())
	assert.Len(t, limiter.visitors, 1)
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/bookings/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/bookings/123", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" && label.GetValue() == "/bookings/:id" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "request metric labelled with route pattern")
}
