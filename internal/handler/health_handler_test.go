package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/service"
)

func TestHealthHandlerReadyReportsEachCheck(t *testing.T) {
	h := NewHealthHandler(nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
		"skipped":  nil,
	})

	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"ok","redis":"dial tcp: connection refused"}}`, rec.Body.String())
}

func TestHealthHandlerReady(t *testing.T) {
	h := NewHealthHandler(nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
	})

	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestHealthHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordReservation(service.OutcomeConfirmed)
	h := NewHealthHandler(metrics, nil)

	c, rec := newTestContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking_reservations_total")

	c, rec = newTestContext(http.MethodGet, "/metrics", nil)
	NewHealthHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
