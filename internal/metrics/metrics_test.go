package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLoad(t *testing.T) {
	m := New()
	m.ObserveLoad(true, 20*time.Millisecond, 120, 3)
	m.ObserveLoad(false, time.Millisecond, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsSkipped))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.Records))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/health", http.StatusOK, time.Millisecond)
	m.ObserveRequest("/api/health", http.StatusOK, time.Millisecond)
	m.ObserveRequest("/api/health", http.StatusServiceUnavailable, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/health", "503")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveLoad(true, time.Second, 1, 0)
	m.ObserveRequest("/", http.StatusOK, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveLoad(true, time.Millisecond, 5, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asaankisaan_records 5")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
