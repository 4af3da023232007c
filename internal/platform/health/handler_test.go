package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	h := New("test")
	h.RegisterCheck("overlay_store", func(context.Context) error { return nil })

	w := serve(h, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no brokers reachable") })
	w = serve(h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "up", body.Checks["overlay_store"])
	assert.Equal(t, "down: no brokers reachable", body.Checks["kafka"])
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("test")
	assert.Equal(t, http.StatusOK, serve(h, "/health/live").Code)

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Environment)
}

func TestStatusReportsDegradedUpstreams(t *testing.T) {
	h := New("test")
	partnerDown := false
	h.RegisterUpstream("partner", func() bool { return partnerDown })
	h.RegisterCheck("overlay_store", func(context.Context) error { return nil })

	var body StatusResponse
	require.NoError(t, json.Unmarshal(serve(h, "/health").Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Empty(t, body.Degraded)

	partnerDown = true
	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, []string{"partner"}, body.Degraded)

	assert.Equal(t, http.StatusOK, serve(h, "/health/ready").Code, "a partner outage does not fail readiness")
}
