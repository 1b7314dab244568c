package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_requests_total",
		Help: "test counter",
	}, []string{"method"})

	require.NoError(t, registry.RegisterCounterVec("test", "requests", counter))

	t.Run("duplicate key is rejected", func(t *testing.T) {
		other := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_other_total",
			Help: "other counter",
		}, []string{})
		err := registry.RegisterCounterVec("test", "requests", other)
		assert.Error(t, err)
	})

	t.Run("unregister removes the metric", func(t *testing.T) {
		assert.True(t, registry.Unregister("test", "requests"))
		assert.False(t, registry.Unregister("test", "requests"))
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_test_total",
		Help: "test counter",
	}, []string{"outcome"})
	require.NoError(t, registry.RegisterCounterVec("gateway", "test", counter))
	counter.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_test_total")
}
