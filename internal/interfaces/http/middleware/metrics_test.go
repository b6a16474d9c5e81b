package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
)

func TestRequestMetrics_UsesRoutePattern(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "competeiq"}, nil)
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	r := chi.NewRouter()
	r.Use(RequestMetrics(m))
	r.Get("/api/v1/competitors/{id}/threat", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/competitors/"+id+"/threat", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	expected := `
# HELP competeiq_http_requests_total Total HTTP requests
# TYPE competeiq_http_requests_total counter
competeiq_http_requests_total{method="GET",path="/api/v1/competitors/{id}/threat",status_code="200"} 3
competeiq_http_requests_total{method="GET",path="unmatched",status_code="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "competeiq_http_requests_total"))
}

func TestRequestMetrics_NilMetrics(t *testing.T) {
	h := RequestMetrics(nil)(statusHandler(http.StatusNoContent))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
